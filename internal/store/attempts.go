package store

import (
	"context"
	"fmt"
	"time"
)

// Attempt records one iteration of the generate/validate loop.
type Attempt struct {
	ID         string
	Session    string
	Seq        int
	Request    string
	Code       string
	Valid      bool
	ErrorCount int
	Duration   time.Duration
	CreatedAt  time.Time
}

// RecordAttempt persists one loop iteration.
func (s *LocalStore) RecordAttempt(ctx context.Context, a Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, session, seq, request, code, valid, error_count, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Session, a.Seq, a.Request, a.Code, a.Valid, a.ErrorCount, a.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// SessionAttempts returns all attempts for a session in order.
func (s *LocalStore) SessionAttempts(ctx context.Context, session string) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session, seq, request, code, valid, error_count, duration_ms, created_at
		 FROM attempts WHERE session = ? ORDER BY seq`, session)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var ms int64
		if err := rows.Scan(&a.ID, &a.Session, &a.Seq, &a.Request, &a.Code, &a.Valid, &a.ErrorCount, &ms, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Duration = time.Duration(ms) * time.Millisecond
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
