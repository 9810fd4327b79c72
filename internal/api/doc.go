// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

/*
Package api provides the admin HTTP API of ConcertWatch.

The API exposes subscriber management, scan control and read-only views of
the engine state. It is served by a chi router behind the usual middleware
stack:

  - RequestID and correlation ID propagation into the logging context
  - RealIP and Recoverer from chi
  - a zerolog request logger and Prometheus request metrics
  - go-chi/cors and go-chi/httprate (per-IP limit)
  - bearer token authentication on /api/v1 when an admin token is set

Endpoints:

	GET    /health/live
	GET    /health/ready
	GET    /metrics
	GET    /api/v1/status
	POST   /api/v1/scan
	GET    /api/v1/artists/resolve?name=
	GET    /api/v1/subscribers
	POST   /api/v1/subscribers
	GET    /api/v1/subscribers/{id}
	DELETE /api/v1/subscribers/{id}
	POST   /api/v1/subscribers/{id}/artists
	DELETE /api/v1/subscribers/{id}/artists/{name}
	GET    /api/v1/subscribers/{id}/notifications
	GET    /api/v1/events

Response Format:

Every response uses the models.APIResponse envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "2026-06-01T12:00:00Z"}
	}

Errors set status to "error" and carry a machine-readable code:

	{
	  "status": "error",
	  "error": {"code": "NOT_FOUND", "message": "Subscriber not found"}
	}

Codes are VALIDATION_ERROR, NOT_FOUND, CONFLICT, UNAUTHORIZED,
RATE_LIMIT_EXCEEDED, SERVICE_UNAVAILABLE and INTERNAL_ERROR.
*/
package api
