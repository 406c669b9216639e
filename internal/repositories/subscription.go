package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ezpbars/internal/models"
	"github.com/desertthunder/ezpbars/internal/shared"
)

const subscriptionColumns = `
	id, sequence, pbar_name, trace_uid, sub, domain, status, error_message,
	attempts, failures, polls, started_at, finished_at, created_at, updated_at, deleted_at
`

// SubscriptionRepository implements [models.Repository] for [models.Subscription] persistence.
type SubscriptionRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Subscription] = (*SubscriptionRepository)(nil)

// NewSubscriptionRepository creates a new [SubscriptionRepository] with the given database connection
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a new subscription with generated ID and sequence
func (r *SubscriptionRepository) Create(s *models.Subscription) error {
	sequence, err := NextSequence(r.db, "subscriptions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	s.SetID(shared.GenerateID())
	s.SetSequence(sequence)

	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		s.ID(), s.Sequence(), s.PbarName(), s.TraceUID(), s.Sub(), s.Domain(), string(s.Status()), s.ErrorMessage(),
		s.Attempts(), s.Failures(), s.Polls(), s.StartedAt(), nullTime(s.FinishedAt()), s.CreatedAt(), s.UpdatedAt(),
		nullTime(s.DeletedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}

	return nil
}

// Get retrieves a subscription by ID, excluding soft-deleted records
func (r *SubscriptionRepository) Get(id string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ? AND deleted_at IS NULL`

	s, err := scanSubscription(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: subscription %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	return s, nil
}

// Update writes the outcome and counters of an existing subscription
func (r *SubscriptionRepository) Update(s *models.Subscription) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	s.SetUpdatedAt(now)

	query := `
		UPDATE subscriptions
		SET status = ?, error_message = ?, attempts = ?, failures = ?, polls = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(s.Status()), s.ErrorMessage(), s.Attempts(), s.Failures(), s.Polls(), nullTime(s.FinishedAt()), now, s.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	return expectAffected(result, s.ID())
}

// Delete soft-deletes a subscription by ID
func (r *SubscriptionRepository) Delete(id string) error {
	query := `UPDATE subscriptions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	return expectAffected(result, id)
}

// List retrieves subscriptions newest first, excluding soft-deleted records.
//
// Supported criteria: "status" (string or [models.SubscriptionStatus]), "pbar_name" (string), "limit" (int).
func (r *SubscriptionRepository) List(criteria map[string]any) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE deleted_at IS NULL`
	args := []any{}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	case models.SubscriptionStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	}

	if name, ok := criteria["pbar_name"].(string); ok && name != "" {
		query += " AND pbar_name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return subs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (*models.Subscription, error) {
	var (
		id, pbarName, traceUID, sub, domain, status, errorMessage string
		sequence, attempts, failures, polls                       int
		startedAt, createdAt, updatedAt                           time.Time
		finishedAt, deletedAt                                     sql.NullTime
	)

	err := row.Scan(&id, &sequence, &pbarName, &traceUID, &sub, &domain, &status, &errorMessage,
		&attempts, &failures, &polls, &startedAt, &finishedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	s := models.NewSubscription(sequence, pbarName, traceUID, sub, domain)
	s.SetID(id)
	s.SetStatus(models.SubscriptionStatus(status))
	s.SetErrorMessage(errorMessage)
	s.SetCounters(attempts, failures, polls)
	s.SetStartedAt(startedAt)
	s.SetCreatedAt(createdAt)
	s.SetUpdatedAt(updatedAt)
	if finishedAt.Valid {
		s.SetFinishedAt(&finishedAt.Time)
	}
	if deletedAt.Valid {
		s.SetDeletedAt(&deletedAt.Time)
	}
	return s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: subscription %s not found or already deleted", shared.ErrNotFound, id)
	}
	return nil
}
