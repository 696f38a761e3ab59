package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/blueprint/internal/logger"
)

// CorrectThreshold is the normalized score at which a response counts as correct.
const CorrectThreshold = 0.5

type responseRepo struct {
	db  *sql.DB
	log *logger.Logger
}

func (r *responseRepo) Save(ctx context.Context, assessmentID uuid.UUID, responses []Response) error {
	if len(responses) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin responses: %w", err)
	}
	defer tx.Rollback()

	for _, resp := range responses {
		query, args := dialectBuilder().Insert(tableResponses).
			Columns("assessment_id", "item_id", "score", "responded_at").
			Values(assessmentID.String(), resp.ItemID.String(), resp.Score, now).
			OnConflict(entsql.ConflictColumns("assessment_id", "item_id"), entsql.ResolveWithNewValues()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save response for %s: %w", resp.ItemID, err)
		}
		if err := refreshFacility(ctx, tx, resp.ItemID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit responses: %w", err)
	}
	r.log.Debug("responses saved", "assessment_id", assessmentID, "count", len(responses))
	return nil
}

// refreshFacility recounts correct responses for an item and updates its
// facility (correct / shown).
func refreshFacility(ctx context.Context, tx *sql.Tx, itemID uuid.UUID) error {
	query, args := dialectBuilder().Select(entsql.Count("*")).
		From(entsql.Table(tableResponses)).
		Where(entsql.And(
			entsql.EQ("item_id", itemID.String()),
			entsql.GTE("score", CorrectThreshold),
		)).
		Query()
	var correct int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&correct); err != nil {
		return fmt.Errorf("count correct responses: %w", err)
	}

	query, args = dialectBuilder().Insert(tableStats).
		Columns("item_id", "shown", "correct").
		Values(itemID.String(), 0, correct).
		OnConflict(
			entsql.ConflictColumns("item_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("correct")
			}),
		).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update correct count: %w", err)
	}

	query, args = dialectBuilder().Select("shown").
		From(entsql.Table(tableStats)).
		Where(entsql.EQ("item_id", itemID.String())).
		Query()
	var shown int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&shown); err != nil {
		return fmt.Errorf("read shown count: %w", err)
	}
	if shown == 0 {
		return nil
	}

	query, args = dialectBuilder().Update(tableStats).
		Set("facility", float64(correct)/float64(shown)).
		Where(entsql.EQ("item_id", itemID.String())).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update facility: %w", err)
	}
	return nil
}

func (r *responseRepo) SeenCodes(ctx context.Context, assessmentIDs []uuid.UUID) (map[string]bool, error) {
	seen := make(map[string]bool)
	if len(assessmentIDs) == 0 {
		return seen, nil
	}
	ids := make([]any, len(assessmentIDs))
	for i, id := range assessmentIDs {
		ids[i] = id.String()
	}

	for _, source := range []string{tableDeliveries, tableResponses} {
		// Both sides carry explicit aliases; an unaliased joined table is
		// renamed by the builder and its columns would no longer resolve.
		b := dialectBuilder()
		src := b.Table(source).As("src")
		bk := b.Table(tableBank).As("bk")
		query, args := b.Select(bk.C("code")).
			Distinct().
			From(src).
			Join(bk).On(src.C("item_id"), bk.C("item_id")).
			Where(entsql.In(src.C("assessment_id"), ids...)).
			Query()

		if err := collectCodes(ctx, r.db, query, args, seen); err != nil {
			return nil, fmt.Errorf("query seen codes from %s: %w", source, err)
		}
	}
	return seen, nil
}

func collectCodes(ctx context.Context, db *sql.DB, query string, args []any, into map[string]bool) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return err
		}
		into[code] = true
	}
	return rows.Err()
}
