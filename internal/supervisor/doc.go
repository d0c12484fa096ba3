// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

/*
Package supervisor provides process supervision for alsrec using suture v4.

# Overview

The supervisor tree organizes long-running services into two layers:

	RootSupervisor ("alsrec")
	├── DataSupervisor ("data-layer")
	│   └── TrainingService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with backoff. Each layer counts failures
independently, so a training service stuck in backoff does not stop the HTTP
server from answering queries against the last published model.

Supervisor events (service start, failure, backoff) are logged through
sutureslog, which writes to the zerolog logger via logging.NewSlogLogger.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewTrainingService(engine, trainingCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}
*/
package supervisor
