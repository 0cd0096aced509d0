// Package client is the transport layer of the groupshare client.
//
// # Overview
//
//  1. Client is the transport-agnostic contract of the remote group sharing
//     API: create, join, get, connect, set-cards, execute and end.
//  2. HTTPClient implements it with JSON over net/http, bounding each request
//     with a timeout and turning HTTP statuses into sentinel errors.
//  3. InitDatabase and RunMigrations bootstrap the local SQLite database that
//     backs the device key/value store.
//
// # Error Handling
//
// Refusals come back as *APIError carrying the server's message. They unwrap
// to a sentinel so callers can branch with errors.Is:
//
//   - ErrSessionNotFound  404, unknown code or session gone
//   - ErrSessionExpired   410, or a refusal whose message says so
//   - ErrUnauthorized     401/403, e.g. a non-admin calling connect
//   - ErrUnavailable      5xx, 429 and transport failures
//
// IsTransient tells polling code which failures deserve another attempt.
package client
