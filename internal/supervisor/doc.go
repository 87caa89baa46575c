// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

/*
Package supervisor runs Tally's long-lived services under suture v4.

# Overview

	RootSupervisor ("tally")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── rate-limit-sweeper
	│   └── site-cache-cleanup
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

	DataSupervisor ("data-layer")
	└── event-writer

The data layer runs beside the root rather than under it. Serve stops the
root first, so the HTTP server has stopped accepting tracking requests
before the event writer is told to drain its queue. The caller closes the
store after Serve returns.

Crashed services are restarted with suture's backoff; supervisor events
are logged through sutureslog and the zerolog slog adapter.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(eventWriter)
	tree.AddMaintenanceService(limiter)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped with error")
	}

# See Also

  - internal/supervisor/services: adapters from blocking servers to suture.Service
  - github.com/thejerf/suture/v4
*/
package supervisor
