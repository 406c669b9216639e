// Package server runs a local stand-in for the ezpbars API, so the client can be developed and tested offline.
//
// # Endpoints
//
//	POST /api/1/examples/job?duration=D&stdev=S → {uid, sub, pbar_name}
//	GET  /api/1/examples/job/{uid}              → {status, data}
//	GET  /api/2/progress_bars/traces/           → trace websocket
//	GET  /healthz                               → {status, jobs}
//
// Jobs come from a [tasks.Registry]. The [TraceHandler] authenticates each connection against the registry, then
// forwards the job's updates as "update" messages and finishes with a done message. Setting DropEvery in [Options]
// closes some connections abnormally after the handshake, which makes the client's reconnect path visible.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// The [BasicRouter] implementation uses [http.ServeMux] internally with method patterns.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
