// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

/*
Package websocket streams event bus traffic to admin clients.

The Hub subscribes to every bus topic and forwards each message as one JSON
text frame:

	{
	  "type": "concert.notified",
	  "id": "4f0c...",
	  "correlation_id": "9b1e...",
	  "sent_at": "2026-06-01T08:00:03Z",
	  "data": {"subscriber_id": "42", "artist": "Metallica", ...}
	}

The hub is mounted at GET /api/v1/events/stream behind the admin bearer
token and runs in the data layer of the supervisor tree. Connections are
refused with 503 while the hub is not running.

Connection timing:
  - writeWait: 10 seconds
  - pongWait: 60 seconds
  - pingPeriod: 54 seconds

A client whose send queue fills up is disconnected instead of delaying the
others. Clients are not expected to send data frames; anything they send is
read and discarded.
*/
package websocket
