// Package client contains the client-side building blocks that talk to the
// storefront HTTP API and bootstrap the local database.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface):
//     Register, Login, Me and the Product CRUD operations.
//  2. HTTPClient, a thin wrapper over net/http with a base URL, a uniform
//     request timeout, default headers, an ordered chain of request hooks
//     (bearer token, request id, throttle) and an ordered pipeline of
//     response handlers (metrics, network error logging, the 401 policy,
//     OpenAPI contract checks). Any handler may stop the pipeline.
//  3. RESTClient, the Client implementation on top of HTTPClient.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Every failure is a *common.Error. Callers match it with errors.Is against
// the common sentinels (common.ErrUnauthorized, common.ErrNotFound, ...) or
// classify it with common.KindOf. HTTP statuses are mapped in one place,
// mapError.
//
// # Concurrency
//
// HTTPClient and RESTClient are safe for concurrent use once constructed.
// All operations accept context.Context and honor cancellation.
package client
