// Package models defines the records the ezpbars client keeps about the traces it waited on.
//
// Progress itself is never stored: fields only ever come from the server. What is kept is the outcome of each
// subscription, so `ezpbars history` can show what ran, how it ended, and how rough the connection was.
//
//   - [Subscription] : one waited trace with its status, error, and connection counters
//
// All persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft
// delete support. The [Repository] interface defines standard CRUD operations for database access.
package models
