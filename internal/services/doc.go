// Package services talks to the ezpbars HTTP API that starts traced jobs and reports their results.
//
// # Job Service
//
// [JobService] is the small surface the CLI needs: start an example job and read its status. [APIService]
// implements it over net/http against the public API (`/api/1/examples/job`).
//
// # Authentication
//
// When an API key is configured, requests carry it as a bearer token through an [oauth2.StaticTokenSource]
// transport. Without a key, requests are anonymous, which the example endpoints accept.
//
// # Poll Fallback
//
// The trace client only asks its poll function after repeated connection failures. [PollFunc] adapts a job's status
// into that function and [HTTPPoller] does the same for any URL returning a `status` field. Status reads are throttled
// with a [rate.Limiter] so a flapping connection cannot hammer the API.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : HTTP request failed or returned an unexpected status
//   - [shared.ErrJobNotFound] : Job UID unknown to the server
//   - [shared.ErrInvalidInput] : Job parameters out of range
package services
