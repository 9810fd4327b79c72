// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

/*
Package supervisor runs the long-lived ConcertWatch services under a suture v4
supervisor tree.

# Layout

	RootSupervisor ("concertwatch")
	├── DataSupervisor ("data-layer")
	│   ├── event-recorder
	│   ├── websocket-hub (if the admin API is enabled)
	│   └── source-cache-gc (if the source cache is enabled)
	├── EngineSupervisor ("engine-layer")
	│   └── scheduler
	└── APISupervisor ("api-layer")
	    └── http-server (if the admin API is enabled)

Each layer counts failures on its own, so a listener that keeps failing to
bind backs off without restarting the scheduler, and a scheduler panic does
not drop in-flight API requests.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddDataService(recorder)
	tree.AddEngineService(sched)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Supervisor.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

Supervisor events (start, stop, restart, backoff) are logged through
sutureslog, which takes a *slog.Logger. The logging package bridges that
logger onto zerolog so all output shares one format.

# Shutdown

Canceling the context passed to Serve stops every layer. A service that does
not return within ShutdownTimeout is abandoned and listed by
UnstoppedServiceReport, which main logs before closing the database.
*/
package supervisor
