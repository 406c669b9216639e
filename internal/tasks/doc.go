// Package tasks simulates the long-running example jobs that the local development server traces.
//
// # Jobs
//
// [Registry.Create] starts a job expected to take a requested duration. Its actual runtime is drawn from a normal
// distribution around that estimate, so some jobs finish early and others run over. A running job reports the five
// trace fields from its estimate:
//
//   - overall ETA is the estimate
//   - remaining ETA is the estimate minus elapsed time, and goes negative once the job runs over
//   - the current step is picked from [DefaultSteps] by elapsed time, with its own overall and remaining ETA
//
// A job is complete once its actual runtime has elapsed. Jobs never fail.
//
// # Progress Reporting
//
// [Registry.Watch] delivers [ProgressUpdate] values on a channel at the registry's tick interval. Intermediate updates
// use select with default so a slow watcher never stalls the ticker; the final update is always delivered before
// the channel closes.
//
// # Batches
//
// [RunBatch] runs a function over a worker pool with a shared rate limiter, used by the CLI to start and wait on
// several jobs at once.
package tasks
