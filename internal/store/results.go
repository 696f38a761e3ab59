package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/blueprint/internal/logger"
	"github.com/abhisek/blueprint/internal/scoring"
)

type resultRepo struct {
	db  *sql.DB
	seq *sequenceCounter
	log *logger.Logger
}

func (r *resultRepo) Save(ctx context.Context, assessmentID uuid.UUID, templateID string, summary scoring.Summary) (*Result, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Sequence:     seq,
		AssessmentID: assessmentID,
		TemplateID:   templateID,
		Summary:      summary,
		CreatedAt:    time.Now().UTC(),
	}
	query, args := dialectBuilder().Insert(tableScoreResult).
		Columns("sequence", "assessment_id", "template_id", "overall_score", "overall_bucket", "summary", "created_at").
		Values(seq, assessmentID.String(), templateID, summary.OverallScore, summary.OverallBucket, string(data), res.CreatedAt).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("save score result: %w", err)
	}

	r.log.Info("score saved", "assessment_id", assessmentID, "template_id", templateID,
		"overall_bucket", summary.OverallBucket, "knockouts", summary.KnockoutDimensions())
	return res, nil
}

func (r *resultRepo) Latest(ctx context.Context, assessmentID uuid.UUID) (*Result, error) {
	query, args := dialectBuilder().Select("sequence", "template_id", "summary", "created_at").
		From(entsql.Table(tableScoreResult)).
		Where(entsql.EQ("assessment_id", assessmentID.String())).
		OrderBy(entsql.Desc("sequence")).
		Limit(1).
		Query()

	res := &Result{AssessmentID: assessmentID}
	var data string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&res.Sequence, &res.TemplateID, &data, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest result: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &res.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return res, nil
}
