package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	tableVersions    = "assessment_versions"
	tableBank        = "assessment_item_bank"
	tableStats       = "assessment_item_stats"
	tableDeliveries  = "assessment_deliveries"
	tableResponses   = "assessment_response_items"
	tableScoreResult = "score_results"
)

var (
	versionsColumns = []*schema.Column{
		{Name: "version_id", Type: field.TypeString, Size: 36},
		{Name: "template_id", Type: field.TypeString},
		{Name: "blueprint_name", Type: field.TypeString},
		{Name: "blueprint_version", Type: field.TypeString},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	versionsTable = &schema.Table{
		Name:       tableVersions,
		Columns:    versionsColumns,
		PrimaryKey: []*schema.Column{versionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "assessmentversion_template_id", Columns: []*schema.Column{versionsColumns[1]}},
		},
	}

	bankColumns = []*schema.Column{
		{Name: "item_id", Type: field.TypeString, Size: 36},
		{Name: "version_id", Type: field.TypeString, Size: 36},
		{Name: "code", Type: field.TypeString},
		{Name: "dimension", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeString},
		{Name: "weight", Type: field.TypeFloat64, Nullable: true},
		{Name: "critical", Type: field.TypeBool, Default: false},
		{Name: "anchor", Type: field.TypeBool, Default: false},
		{Name: "discrimination", Type: field.TypeFloat64, Nullable: true},
		{Name: "exposure_cap", Type: field.TypeFloat64, Nullable: true},
		{Name: "tags", Type: field.TypeJSON, Nullable: true},
		{Name: "meta", Type: field.TypeJSON, Nullable: true},
	}
	bankTable = &schema.Table{
		Name:       tableBank,
		Columns:    bankColumns,
		PrimaryKey: []*schema.Column{bankColumns[0]},
		Indexes: []*schema.Index{
			{Name: "assessmentitembank_version_id_code", Unique: true, Columns: []*schema.Column{bankColumns[1], bankColumns[2]}},
		},
	}

	statsColumns = []*schema.Column{
		{Name: "item_id", Type: field.TypeString, Size: 36},
		{Name: "shown", Type: field.TypeInt, Default: 0},
		{Name: "correct", Type: field.TypeInt, Default: 0},
		{Name: "facility", Type: field.TypeFloat64, Nullable: true},
		{Name: "discrimination", Type: field.TypeFloat64, Nullable: true},
		{Name: "exposure", Type: field.TypeFloat64, Nullable: true},
		{Name: "last_seen_at", Type: field.TypeTime, Nullable: true},
	}
	statsTable = &schema.Table{
		Name:       tableStats,
		Columns:    statsColumns,
		PrimaryKey: []*schema.Column{statsColumns[0]},
	}

	deliveriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "assessment_id", Type: field.TypeString, Size: 36},
		{Name: "version_id", Type: field.TypeString, Size: 36},
		{Name: "item_id", Type: field.TypeString, Size: 36},
		{Name: "delivered_at", Type: field.TypeTime},
	}
	deliveriesTable = &schema.Table{
		Name:       tableDeliveries,
		Columns:    deliveriesColumns,
		PrimaryKey: []*schema.Column{deliveriesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "assessmentdelivery_assessment_id", Columns: []*schema.Column{deliveriesColumns[2]}},
			{Name: "assessmentdelivery_version_id", Columns: []*schema.Column{deliveriesColumns[3]}},
		},
	}

	responsesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "assessment_id", Type: field.TypeString, Size: 36},
		{Name: "item_id", Type: field.TypeString, Size: 36},
		{Name: "score", Type: field.TypeFloat64},
		{Name: "responded_at", Type: field.TypeTime},
	}
	responsesTable = &schema.Table{
		Name:       tableResponses,
		Columns:    responsesColumns,
		PrimaryKey: []*schema.Column{responsesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "assessmentresponseitem_assessment_id_item_id", Unique: true, Columns: []*schema.Column{responsesColumns[1], responsesColumns[2]}},
		},
	}

	resultsColumns = []*schema.Column{
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "assessment_id", Type: field.TypeString, Size: 36},
		{Name: "template_id", Type: field.TypeString},
		{Name: "overall_score", Type: field.TypeFloat64},
		{Name: "overall_bucket", Type: field.TypeString},
		{Name: "summary", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	resultsTable = &schema.Table{
		Name:       tableScoreResult,
		Columns:    resultsColumns,
		PrimaryKey: []*schema.Column{resultsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "scoreresult_assessment_id", Columns: []*schema.Column{resultsColumns[1]}},
		},
	}

	tables = []*schema.Table{
		versionsTable,
		bankTable,
		statsTable,
		deliveriesTable,
		responsesTable,
		resultsTable,
	}
)

// migrate creates or upgrades every table through ent's migration engine.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migration: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
