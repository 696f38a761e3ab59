package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/abhisek/blueprint/internal/logger"
)

var versionColumns = []string{"version_id", "template_id", "blueprint_name", "blueprint_version", "is_active", "created_at"}

type versionRepo struct {
	db  *sql.DB
	log *logger.Logger
}

func (r *versionRepo) Create(ctx context.Context, templateID, name, blueprintVersion string) (*Version, error) {
	v := &Version{
		ID:               uuid.New(),
		TemplateID:       templateID,
		BlueprintName:    name,
		BlueprintVersion: blueprintVersion,
		Active:           true,
		CreatedAt:        time.Now().UTC(),
	}

	query, args := dialectBuilder().Insert(tableVersions).
		Columns(versionColumns...).
		Values(v.ID.String(), v.TemplateID, v.BlueprintName, v.BlueprintVersion, v.Active, v.CreatedAt).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("create version: %w", err)
	}

	r.log.Info("assessment version created", "template_id", templateID, "version_id", v.ID, "blueprint_version", blueprintVersion)
	return v, nil
}

func (r *versionRepo) List(ctx context.Context, templateID string) ([]Version, error) {
	query, args := dialectBuilder().Select(versionColumns...).
		From(entsql.Table(tableVersions)).
		Where(entsql.EQ("template_id", templateID)).
		OrderBy("created_at").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var (
			v  Version
			id string
		)
		if err := rows.Scan(&id, &v.TemplateID, &v.BlueprintName, &v.BlueprintVersion, &v.Active, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if v.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse version id %q: %w", id, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *versionRepo) Latest(ctx context.Context, templateID string) (*Version, error) {
	versions, err := r.List(ctx, templateID)
	if err != nil {
		return nil, err
	}

	var best *Version
	for i := range versions {
		v := &versions[i]
		if !v.Active {
			continue
		}
		// Later creations win ties, so iterating oldest first with >= keeps the newest.
		if best == nil || semver.Compare(canonicalSemver(v.BlueprintVersion), canonicalSemver(best.BlueprintVersion)) >= 0 {
			best = v
		}
	}
	return best, nil
}

// canonicalSemver adds the "v" prefix that x/mod/semver requires.
func canonicalSemver(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
