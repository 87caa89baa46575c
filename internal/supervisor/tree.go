// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long a service may take to stop.
	// Default: 10s
	ShutdownTimeout time.Duration

	// DataShutdownTimeout bounds the data layer separately, since the
	// event writer drains its queue before returning.
	// Default: ShutdownTimeout
	DataShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold:    5.0,
		FailureDecay:        30.0,
		FailureBackoff:      15 * time.Second,
		ShutdownTimeout:     10 * time.Second,
		DataShutdownTimeout: 10 * time.Second,
	}
}

// SupervisorTree owns the supervisors of the process.
type SupervisorTree struct {
	root        *suture.Supervisor
	maintenance *suture.Supervisor
	api         *suture.Supervisor
	data        *suture.Supervisor
	logger      *slog.Logger
	config      TreeConfig
}

// NewSupervisorTree creates a new supervisor tree with the given configuration.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	if logger == nil {
		return nil, errors.New("supervisor: logger is required")
	}

	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if config.DataShutdownTimeout == 0 {
		config.DataShutdownTimeout = config.ShutdownTimeout
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	spec := func(timeout time.Duration, hook suture.EventHook) suture.Spec {
		return suture.Spec{
			EventHook:        hook,
			FailureThreshold: config.FailureThreshold,
			FailureDecay:     config.FailureDecay,
			FailureBackoff:   config.FailureBackoff,
			Timeout:          timeout,
		}
	}

	// Children inherit the root's hook when added.
	root := suture.New("tally", spec(config.ShutdownTimeout, eventHook))
	maintenance := suture.New("maintenance-layer", spec(config.ShutdownTimeout, nil))
	api := suture.New("api-layer", spec(config.ShutdownTimeout, nil))
	data := suture.New("data-layer", spec(config.DataShutdownTimeout, eventHook))

	root.Add(maintenance)
	root.Add(api)

	return &SupervisorTree{
		root:        root,
		maintenance: maintenance,
		api:         api,
		data:        data,
		logger:      logger,
		config:      config,
	}, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddDataService adds a service that must outlive the API layer, such as
// the event writer.
func (t *SupervisorTree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

// AddMaintenanceService adds a periodic background task.
func (t *SupervisorTree) AddMaintenanceService(svc suture.Service) suture.ServiceToken {
	return t.maintenance.Add(svc)
}

// AddAPIService adds a network-facing service.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs every layer until ctx is canceled.
//
// The root (API and maintenance) stops first; only then is the data layer
// canceled and awaited. The returned error is the root's, or the data
// layer's if the root stopped cleanly.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	dataCtx, cancelData := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelData()
	dataDone := t.data.ServeBackground(dataCtx)

	rootErr := t.root.Serve(ctx)

	t.logger.Info("API layer stopped, draining data layer")
	cancelData()
	dataErr := <-dataDone

	if rootErr != nil {
		return rootErr
	}
	if dataErr != nil && !errors.Is(dataErr, context.Canceled) {
		return dataErr
	}
	return nil
}

// UnstoppedServiceReport lists services of both the root and the data
// layer that did not stop within their timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	rootReport, err := t.root.UnstoppedServiceReport()
	if err != nil {
		return nil, err
	}
	dataReport, err := t.data.UnstoppedServiceReport()
	if err != nil {
		return nil, err
	}
	return append(rootReport, dataReport...), nil
}
