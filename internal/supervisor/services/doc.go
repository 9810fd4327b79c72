// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

/*
Package services adapts components that do not speak suture's
Serve(ctx) error contract.

Most ConcertWatch components already implement suture.Service directly: the
scheduler, the event recorder and the source cache GC each have a Serve
method and a String name. The HTTP server is the exception, since
http.Server blocks in ListenAndServe and stops through Shutdown.
HTTPServerService bridges the two.

Return values follow suture's conventions:

	nil        stopped cleanly, not restarted
	error      crashed, restarted with backoff
	ctx.Err()  shutdown requested
*/
package services
