package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/blueprint/internal/itempool"
	"github.com/abhisek/blueprint/internal/logger"
)

var bankRecordColumns = []string{
	"item_id", "version_id", "code", "dimension", "difficulty", "weight",
	"critical", "anchor", "discrimination", "exposure_cap", "tags", "meta",
}

type bankRepo struct {
	db  *sql.DB
	seq *sequenceCounter
	log *logger.Logger
}

func (r *bankRepo) Import(ctx context.Context, versionID uuid.UUID, records []itempool.BankRecord) ([]itempool.BankRecord, error) {
	existing, err := r.codeIndex(ctx, versionID)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	out := make([]itempool.BankRecord, 0, len(records))
	for _, rec := range records {
		rec.VersionID = versionID
		if id, ok := existing[rec.Code]; ok {
			rec.ItemID = id
		} else if rec.ItemID == uuid.Nil {
			rec.ItemID = uuid.New()
		}

		tags, err := json.Marshal(rec.Tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tags of %s: %w", rec.Code, err)
		}
		meta, err := json.Marshal(rec.Meta)
		if err != nil {
			return nil, fmt.Errorf("marshal meta of %s: %w", rec.Code, err)
		}

		query, args := dialectBuilder().Insert(tableBank).
			Columns(bankRecordColumns...).
			Values(
				rec.ItemID.String(), versionID.String(), rec.Code, rec.Dimension, rec.Difficulty,
				nullFloat(rec.Weight), rec.Critical, rec.Anchor,
				nullFloat(rec.Discrimination), nullFloat(rec.ExposureCap), string(tags), string(meta),
			).
			OnConflict(entsql.ConflictColumns("version_id", "code"), entsql.ResolveWithNewValues()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("import item %s: %w", rec.Code, err)
		}
		out = append(out, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	r.log.Info("item bank imported", "version_id", versionID, "items", len(out))
	return out, nil
}

// codeIndex maps the codes already stored under a version to their item ids.
func (r *bankRepo) codeIndex(ctx context.Context, versionID uuid.UUID) (map[string]uuid.UUID, error) {
	records, err := r.Records(ctx, versionID)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]uuid.UUID, len(records))
	for _, rec := range records {
		idx[rec.Code] = rec.ItemID
	}
	return idx, nil
}

func (r *bankRepo) Records(ctx context.Context, versionID uuid.UUID) ([]itempool.BankRecord, error) {
	query, args := dialectBuilder().Select(bankRecordColumns...).
		From(entsql.Table(tableBank)).
		Where(entsql.EQ("version_id", versionID.String())).
		OrderBy("code").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bank records: %w", err)
	}
	defer rows.Close()

	var out []itempool.BankRecord
	for rows.Next() {
		var (
			rec                       itempool.BankRecord
			itemID, verID             string
			weight, disc, exposureCap sql.NullFloat64
			tags, meta                sql.NullString
		)
		err := rows.Scan(&itemID, &verID, &rec.Code, &rec.Dimension, &rec.Difficulty, &weight,
			&rec.Critical, &rec.Anchor, &disc, &exposureCap, &tags, &meta)
		if err != nil {
			return nil, fmt.Errorf("scan bank record: %w", err)
		}
		if rec.ItemID, err = uuid.Parse(itemID); err != nil {
			return nil, fmt.Errorf("parse item id %q: %w", itemID, err)
		}
		if rec.VersionID, err = uuid.Parse(verID); err != nil {
			return nil, fmt.Errorf("parse version id %q: %w", verID, err)
		}
		rec.Weight = floatPtr(weight)
		rec.Discrimination = floatPtr(disc)
		rec.ExposureCap = floatPtr(exposureCap)
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &rec.Tags); err != nil {
				return nil, fmt.Errorf("decode tags of %s: %w", rec.Code, err)
			}
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &rec.Meta); err != nil {
				return nil, fmt.Errorf("decode meta of %s: %w", rec.Code, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *bankRepo) Stats(ctx context.Context, versionID uuid.UUID) ([]itempool.ItemStats, error) {
	b := dialectBuilder()
	st := b.Table(tableStats)
	bk := b.Table(tableBank)
	query, args := b.Select(
		st.C("item_id"), st.C("shown"), st.C("correct"), st.C("facility"),
		st.C("discrimination"), st.C("exposure"), st.C("last_seen_at"),
	).
		From(st).
		Join(bk).On(st.C("item_id"), bk.C("item_id")).
		Where(entsql.EQ(bk.C("version_id"), versionID.String())).
		OrderBy(st.C("item_id")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query item stats: %w", err)
	}
	defer rows.Close()

	var out []itempool.ItemStats
	for rows.Next() {
		var (
			s                        itempool.ItemStats
			itemID                   string
			facility, disc, exposure sql.NullFloat64
			lastSeen                 sql.NullTime
		)
		if err := rows.Scan(&itemID, &s.Shown, &s.Correct, &facility, &disc, &exposure, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan item stats: %w", err)
		}
		if s.ItemID, err = uuid.Parse(itemID); err != nil {
			return nil, fmt.Errorf("parse item id %q: %w", itemID, err)
		}
		s.Facility = floatPtr(facility)
		s.Discrimination = floatPtr(disc)
		s.Exposure = floatPtr(exposure)
		if lastSeen.Valid {
			t := lastSeen.Time
			s.LastSeenAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *bankRepo) RecordAdministration(ctx context.Context, versionID, assessmentID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin administration: %w", err)
	}
	defer tx.Rollback()

	for _, id := range itemIDs {
		query, args := dialectBuilder().Insert(tableDeliveries).
			Columns("sequence", "assessment_id", "version_id", "item_id", "delivered_at").
			Values(seq, assessmentID.String(), versionID.String(), id.String(), now).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("record delivery of %s: %w", id, err)
		}

		query, args = dialectBuilder().Insert(tableStats).
			Columns("item_id", "shown", "correct", "last_seen_at").
			Values(id.String(), 1, 0, now).
			OnConflict(
				entsql.ConflictColumns("item_id"),
				entsql.ResolveWith(func(u *entsql.UpdateSet) {
					u.Add("shown", 1)
					u.SetExcluded("last_seen_at")
				}),
			).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("bump shown of %s: %w", id, err)
		}
	}

	if err := refreshExposure(ctx, tx, versionID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit administration: %w", err)
	}

	r.log.Debug("administration recorded", "version_id", versionID, "assessment_id", assessmentID, "items", len(itemIDs), "sequence", seq)
	return nil
}

// refreshExposure sets exposure = shown / administrations for every item of
// the version that has statistics.
func refreshExposure(ctx context.Context, tx *sql.Tx, versionID uuid.UUID) error {
	b := dialectBuilder()
	query, args := b.Select(entsql.Count(entsql.Distinct("sequence"))).
		From(entsql.Table(tableDeliveries)).
		Where(entsql.EQ("version_id", versionID.String())).
		Query()
	var administrations int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&administrations); err != nil {
		return fmt.Errorf("count administrations: %w", err)
	}
	if administrations == 0 {
		return nil
	}

	st := b.Table(tableStats)
	bk := b.Table(tableBank)
	query, args = b.Select(st.C("item_id"), st.C("shown")).
		From(st).
		Join(bk).On(st.C("item_id"), bk.C("item_id")).
		Where(entsql.EQ(bk.C("version_id"), versionID.String())).
		Query()
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query shown counts: %w", err)
	}
	shown := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			rows.Close()
			return fmt.Errorf("scan shown count: %w", err)
		}
		shown[id] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate shown counts: %w", err)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for id, n := range shown {
		exposure := min(1, float64(n)/float64(administrations))
		query, args := dialectBuilder().Update(tableStats).
			Set("exposure", exposure).
			Where(entsql.EQ("item_id", id)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update exposure of %s: %w", id, err)
		}
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
