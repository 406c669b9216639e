// Package trace subscribes to the live progress of a server-side trace over a websocket.
//
// # Protocol
//
// Each connection runs a handshake and then streams:
//
//  1. Connect to {scheme}://{domain}/api/2/progress_bars/traces/
//  2. Send [AuthRequest] and read one [AuthResponse]. A rejection is terminal and reported as [*AuthError].
//  3. Read [StreamMessage] values. "update" messages are copied into the [progress.View]; a "done" message closes
//     the socket and completes the subscription.
//
// # Reconnection
//
// Any connection loss before a terminal message counts as one failure. Failures decay one minute after they occur.
// [RetryDelay] maps the current count to a delay: immediate for the first two, then 1s, 4s, and 15s from the fifth
// onward. From the fifth failure the caller's [PollFunc] is asked whether the task already finished; if so the
// subscription completes without reconnecting. Sockets are not resumable, so every reconnect repeats the handshake.
//
// Malformed messages are terminal and reported as [*ProtocolError].
//
// # Lifecycle
//
// [Subscribe] starts a [Subscription] on its own goroutine. It settles exactly once: nil on completion, an error
// otherwise. [Subscription.Close] stops the socket and every pending timer; once it returns nothing else is
// delivered. [WaitForCompletion] wraps both for the common blocking case.
package trace
