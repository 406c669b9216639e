// Package progress defines the [View] contract a trace subscription writes into, and the terminal renderers that satisfy it.
//
// # Contract
//
// A [View] receives five live fields (overall ETA, remaining ETA, step name, step overall ETA, step remaining ETA) and an
// error hook. Fields are only ever pushed by the server; views never interpolate.
//
// An [Element] is a View that can render itself to a string, the terminal analogue of a mounted DOM node.
//
// # Renderers
//
//   - [Linear] : a determinate bar whose value is 100 * (1 - remaining/overall), unclamped in computation
//   - [Spinner] : an indeterminate spinner labelled with the current step
//   - [Composite] : fans every update out to two Elements and mounts one at a time based on the remaining ETA
//   - [LogView] : writes each update as a structured log line, for non-interactive output
//
// [NewStandard] builds the standard display: a Linear bar while time remains, a Spinner once it runs out.
//
// Views are not safe for concurrent use. The TUI serializes updates on its update loop.
package progress
