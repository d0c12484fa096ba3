// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

/*
Package services provides suture.Service wrappers for alsrec components.

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and identifies itself through fmt.Stringer for supervisor log events.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe pattern to Serve

Training (TrainingService):
  - Restores the latest persisted model on first start
  - Trains on startup when configured or when nothing was restored
  - Retrains on a fixed interval; a run already in progress is skipped
*/
package services
