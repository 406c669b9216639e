package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/ezpbars/internal/shared"
)

// SubscriptionStatus is the outcome of a waited trace.
type SubscriptionStatus string

const (
	StatusPending  SubscriptionStatus = "pending"
	StatusComplete SubscriptionStatus = "complete"
	StatusFailed   SubscriptionStatus = "failed"
	StatusClosed   SubscriptionStatus = "closed"
)

// Valid reports whether s is a known status.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusComplete, StatusFailed, StatusClosed:
		return true
	}
	return false
}

// Subscription records one trace the client waited on.
type Subscription struct {
	id           string
	sequence     int
	pbarName     string
	traceUID     string
	sub          string
	domain       string
	status       SubscriptionStatus
	errorMessage string
	attempts     int
	failures     int
	polls        int
	startedAt    time.Time
	finishedAt   *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewSubscription creates a pending record started now.
func NewSubscription(sequence int, pbarName, traceUID, sub, domain string) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		sequence:  sequence,
		pbarName:  pbarName,
		traceUID:  traceUID,
		sub:       sub,
		domain:    domain,
		status:    StatusPending,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Subscription) ID() string                 { return s.id }
func (s *Subscription) Sequence() int              { return s.sequence }
func (s *Subscription) PbarName() string           { return s.pbarName }
func (s *Subscription) TraceUID() string           { return s.traceUID }
func (s *Subscription) Sub() string                { return s.sub }
func (s *Subscription) Domain() string             { return s.domain }
func (s *Subscription) Status() SubscriptionStatus { return s.status }
func (s *Subscription) ErrorMessage() string       { return s.errorMessage }
func (s *Subscription) Attempts() int              { return s.attempts }
func (s *Subscription) Failures() int              { return s.failures }
func (s *Subscription) Polls() int                 { return s.polls }
func (s *Subscription) StartedAt() time.Time       { return s.startedAt }
func (s *Subscription) FinishedAt() *time.Time     { return s.finishedAt }
func (s *Subscription) CreatedAt() time.Time       { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time       { return s.updatedAt }
func (s *Subscription) DeletedAt() *time.Time      { return s.deletedAt }

func (s *Subscription) SetID(id string)                 { s.id = id }
func (s *Subscription) SetSequence(sequence int)        { s.sequence = sequence }
func (s *Subscription) SetStartedAt(t time.Time)        { s.startedAt = t }
func (s *Subscription) SetFinishedAt(t *time.Time)      { s.finishedAt = t }
func (s *Subscription) SetCreatedAt(t time.Time)        { s.createdAt = t }
func (s *Subscription) SetUpdatedAt(t time.Time)        { s.updatedAt = t }
func (s *Subscription) SetDeletedAt(t *time.Time)       { s.deletedAt = t }
func (s *Subscription) SetStatus(st SubscriptionStatus) { s.status = st }
func (s *Subscription) SetErrorMessage(msg string)      { s.errorMessage = msg }

// SetCounters records the connection counters of the subscription.
func (s *Subscription) SetCounters(attempts, failures, polls int) {
	s.attempts, s.failures, s.polls = attempts, failures, polls
}

// Finish settles the record with status and, for failures, the error message.
func (s *Subscription) Finish(status SubscriptionStatus, errorMessage string, at time.Time) {
	s.status = status
	s.errorMessage = errorMessage
	finished := at.UTC()
	s.finishedAt = &finished
}

// Duration is the time from start to finish, or zero while pending.
func (s *Subscription) Duration() time.Duration {
	if s.finishedAt == nil {
		return 0
	}
	return s.finishedAt.Sub(s.startedAt)
}

// Validate checks required identifiers and status consistency.
func (s *Subscription) Validate() error {
	if s.id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	required := []struct{ name, value string }{
		{"pbar name", s.pbarName},
		{"trace uid", s.traceUID},
		{"sub", s.sub},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", shared.ErrMissingArgument, f.name)
		}
	}
	if !s.status.Valid() {
		return fmt.Errorf("%w: status %q", shared.ErrInvalidInput, s.status)
	}
	if s.status == StatusPending && s.finishedAt != nil {
		return fmt.Errorf("%w: pending subscription cannot have finished_at", shared.ErrInvalidInput)
	}
	if s.attempts < 0 || s.failures < 0 || s.polls < 0 {
		return fmt.Errorf("%w: negative counters", shared.ErrInvalidInput)
	}
	return nil
}
