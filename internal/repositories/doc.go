// Package repositories stores subscription outcomes in SQLite.
//
// [SubscriptionRepository] implements models.Repository for [models.Subscription]. Records are numbered from a
// per-table counter ([NextSequence]) so `ezpbars history` can show "#12" instead of a UUID, and deletes only stamp
// deleted_at so listings skip them while the row remains for auditing.
package repositories
