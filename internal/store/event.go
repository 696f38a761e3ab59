package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
)

// tableSequence holds the single counter row behind administration and
// score-result sequence numbers.
const tableSequence = "assessment_sequence"

// sequenceCounter hands out the monotonic sequence shared by administrations
// and score results, so a respondent's deliveries and scores can be ordered
// against each other. One administration takes one number for all of its
// delivery rows.
//
// Next must not be called while a transaction holds the only connection.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + tableSequence + ` (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", tableSequence, err)
	}

	query, args := dialectBuilder().Insert(tableSequence).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if _, err := db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("seed %s: %w", tableSequence, err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next returns the next sequence number. The increment and read happen in
// one statement.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE `+tableSequence+` SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next assessment sequence: %w", err)
	}
	return seq, nil
}
