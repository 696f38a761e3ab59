package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/abhisek/blueprint/internal/itempool"
	"github.com/abhisek/blueprint/internal/scoring"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	for _, table := range []string{tableVersions, tableBank, tableStats, tableDeliveries, tableResponses, tableScoreResult, tableSequence} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Versions().Create(ctx, "tpl", "Template", "1.0.0"); err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	v, err := s.Versions().Latest(ctx, "tpl")
	if err != nil || v == nil {
		t.Fatalf("latest after reopen = %v, %v", v, err)
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestVersionsLatestBySemver(t *testing.T) {
	s := openTestStore(t)
	repo := s.Versions()
	ctx := context.Background()

	v, err := repo.Latest(ctx, "tpl")
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if v != nil {
		t.Fatal("expected nil version when none exist")
	}

	for _, ver := range []string{"1.2.0", "v1.10.0", "1.9.3", "not-a-version"} {
		if _, err := repo.Create(ctx, "tpl", "Template", ver); err != nil {
			t.Fatalf("create %s: %v", ver, err)
		}
	}
	if _, err := repo.Create(ctx, "other", "Other", "9.0.0"); err != nil {
		t.Fatalf("create other: %v", err)
	}

	v, err = repo.Latest(ctx, "tpl")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if v.BlueprintVersion != "v1.10.0" {
		t.Errorf("latest = %q, want v1.10.0", v.BlueprintVersion)
	}

	all, err := repo.List(ctx, "tpl")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("list returned %d versions, want 4", len(all))
	}
}

func TestBankImportAndRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ver, err := s.Versions().Create(ctx, "tpl", "Template", "1.0.0")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	imported, err := s.Bank().Import(ctx, ver.ID, []itempool.BankRecord{
		{Code: "b", Dimension: "D", Difficulty: "hard", Weight: ptr(2.5), Critical: true, Tags: []string{"x"}},
		{Code: "a", Dimension: "D", Difficulty: "easy", Meta: map[string]any{"exposure_ratio": 0.18}},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, rec := range imported {
		if rec.ItemID == uuid.Nil {
			t.Errorf("record %s has no item id", rec.Code)
		}
	}

	records, err := s.Bank().Records(ctx, ver.ID)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 2 || records[0].Code != "a" || records[1].Code != "b" {
		t.Fatalf("records = %+v, want a, b ordered by code", records)
	}
	if records[0].Weight != nil {
		t.Errorf("a weight = %v, want nil", *records[0].Weight)
	}
	if got := records[0].Meta["exposure_ratio"]; got != 0.18 {
		t.Errorf("a meta exposure_ratio = %v", got)
	}
	if records[1].Weight == nil || *records[1].Weight != 2.5 || !records[1].Critical {
		t.Errorf("b = %+v", records[1])
	}
	if len(records[1].Tags) != 1 || records[1].Tags[0] != "x" {
		t.Errorf("b tags = %v", records[1].Tags)
	}

	// Re-importing a code keeps its item id.
	again, err := s.Bank().Import(ctx, ver.ID, []itempool.BankRecord{
		{Code: "a", Dimension: "D", Difficulty: "medium"},
	})
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if again[0].ItemID != records[0].ItemID {
		t.Errorf("re-import changed item id")
	}
	records, _ = s.Bank().Records(ctx, ver.ID)
	if records[0].Difficulty != "medium" {
		t.Errorf("re-import difficulty = %q, want medium", records[0].Difficulty)
	}
}

func TestRecordAdministrationUpdatesExposure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ver, _ := s.Versions().Create(ctx, "tpl", "Template", "1.0.0")
	recs, err := s.Bank().Import(ctx, ver.ID, []itempool.BankRecord{
		{Code: "a", Dimension: "D", Difficulty: "easy"},
		{Code: "b", Dimension: "D", Difficulty: "easy"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	a, b := recs[0].ItemID, recs[1].ItemID

	first, second := uuid.New(), uuid.New()
	if err := s.Bank().RecordAdministration(ctx, ver.ID, first, []uuid.UUID{a, b}); err != nil {
		t.Fatalf("administer first: %v", err)
	}
	if err := s.Bank().RecordAdministration(ctx, ver.ID, second, []uuid.UUID{a}); err != nil {
		t.Fatalf("administer second: %v", err)
	}

	stats, err := s.Bank().Stats(ctx, ver.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	byItem := itempool.StatsByItem(stats)

	if got := byItem[a]; got.Shown != 2 || got.Exposure == nil || *got.Exposure != 1.0 {
		t.Errorf("a stats = %+v", got)
	}
	if got := byItem[b]; got.Shown != 1 || got.Exposure == nil || *got.Exposure != 0.5 {
		t.Errorf("b stats = %+v", got)
	}
	if byItem[a].LastSeenAt == nil {
		t.Error("a last_seen_at not set")
	}

	// Hydrated items carry the observed exposure.
	items, err := itempool.FromBank(recs, byItem)
	if err != nil {
		t.Fatalf("from bank: %v", err)
	}
	if items[1].ExposureRatio == nil || *items[1].ExposureRatio != 0.5 {
		t.Errorf("hydrated b exposure = %v", items[1].ExposureRatio)
	}

	seen, err := s.Responses().SeenCodes(ctx, []uuid.UUID{second})
	if err != nil {
		t.Fatalf("seen codes: %v", err)
	}
	if !seen["a"] || seen["b"] {
		t.Errorf("seen = %v, want only a", seen)
	}
}

func TestResponsesUpdateFacility(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ver, _ := s.Versions().Create(ctx, "tpl", "Template", "1.0.0")
	recs, _ := s.Bank().Import(ctx, ver.ID, []itempool.BankRecord{{Code: "a", Dimension: "D", Difficulty: "easy"}})
	a := recs[0].ItemID

	one, two := uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{one, two} {
		if err := s.Bank().RecordAdministration(ctx, ver.ID, id, []uuid.UUID{a}); err != nil {
			t.Fatalf("administer: %v", err)
		}
	}
	if err := s.Responses().Save(ctx, one, []Response{{ItemID: a, Score: 0.9}}); err != nil {
		t.Fatalf("save one: %v", err)
	}
	if err := s.Responses().Save(ctx, two, []Response{{ItemID: a, Score: 0.2}}); err != nil {
		t.Fatalf("save two: %v", err)
	}
	// Saving again for the same assessment replaces the response.
	if err := s.Responses().Save(ctx, one, []Response{{ItemID: a, Score: 0.95}}); err != nil {
		t.Fatalf("resave: %v", err)
	}

	stats, _ := s.Bank().Stats(ctx, ver.ID)
	if len(stats) != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats[0].Correct != 1 || stats[0].Facility == nil || *stats[0].Facility != 0.5 {
		t.Errorf("stats = %+v, want correct 1 facility 0.5", stats[0])
	}

	seen, err := s.Responses().SeenCodes(ctx, []uuid.UUID{one, two})
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if !seen["a"] {
		t.Errorf("seen = %v", seen)
	}
}

func TestSeenCodesFromResponsesOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ver, _ := s.Versions().Create(ctx, "tpl", "Template", "1.0.0")
	recs, err := s.Bank().Import(ctx, ver.ID, []itempool.BankRecord{
		{Code: "a", Dimension: "D", Difficulty: "easy"},
		{Code: "b", Dimension: "D", Difficulty: "easy"},
		{Code: "c", Dimension: "D", Difficulty: "hard"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	// Answers recorded without any delivery rows.
	answered, other := uuid.New(), uuid.New()
	if err := s.Responses().Save(ctx, answered, []Response{{ItemID: recs[0].ItemID, Score: 1}, {ItemID: recs[2].ItemID, Score: 0}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Responses().Save(ctx, other, []Response{{ItemID: recs[1].ItemID, Score: 1}}); err != nil {
		t.Fatalf("save other: %v", err)
	}

	seen, err := s.Responses().SeenCodes(ctx, []uuid.UUID{answered})
	if err != nil {
		t.Fatalf("seen codes: %v", err)
	}
	if len(seen) != 2 || !seen["a"] || !seen["c"] {
		t.Errorf("seen = %v, want a and c", seen)
	}

	// Facility stays unset until the item has been shown.
	stats, _ := s.Bank().Stats(ctx, ver.ID)
	for _, st := range stats {
		if st.Facility != nil {
			t.Errorf("facility of %s = %v, want unset", st.ItemID, *st.Facility)
		}
	}
}

func TestSeenCodesUnionOfDeliveriesAndResponses(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ver, _ := s.Versions().Create(ctx, "tpl", "Template", "1.0.0")
	recs, _ := s.Bank().Import(ctx, ver.ID, []itempool.BankRecord{
		{Code: "a", Dimension: "D", Difficulty: "easy"},
		{Code: "b", Dimension: "D", Difficulty: "easy"},
	})
	delivered, answered := uuid.New(), uuid.New()
	if err := s.Bank().RecordAdministration(ctx, ver.ID, delivered, []uuid.UUID{recs[0].ItemID}); err != nil {
		t.Fatalf("administer: %v", err)
	}
	if err := s.Responses().Save(ctx, answered, []Response{{ItemID: recs[1].ItemID, Score: 0.5}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	seen, err := s.Responses().SeenCodes(ctx, []uuid.UUID{delivered, answered})
	if err != nil {
		t.Fatalf("seen codes: %v", err)
	}
	if len(seen) != 2 || !seen["a"] || !seen["b"] {
		t.Errorf("seen = %v, want a and b", seen)
	}
}

func TestAdministrationsAndResultsShareSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ver, _ := s.Versions().Create(ctx, "tpl", "Template", "1.0.0")
	recs, _ := s.Bank().Import(ctx, ver.ID, []itempool.BankRecord{
		{Code: "a", Dimension: "D", Difficulty: "easy"},
		{Code: "b", Dimension: "D", Difficulty: "easy"},
	})
	assessment := uuid.New()
	if err := s.Bank().RecordAdministration(ctx, ver.ID, assessment, []uuid.UUID{recs[0].ItemID, recs[1].ItemID}); err != nil {
		t.Fatalf("administer: %v", err)
	}
	res, err := s.Results().Save(ctx, assessment, "tpl", scoring.Summary{OverallBucket: "GREEN"})
	if err != nil {
		t.Fatalf("save result: %v", err)
	}

	var seqs []int64
	rows, err := s.DB().Query("SELECT DISTINCT sequence FROM " + tableDeliveries)
	if err != nil {
		t.Fatalf("query deliveries: %v", err)
	}
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			t.Fatalf("scan: %v", err)
		}
		seqs = append(seqs, seq)
	}
	rows.Close()

	if len(seqs) != 1 || seqs[0] != 1 {
		t.Fatalf("delivery sequences = %v, want one administration numbered 1", seqs)
	}
	if res.Sequence != 2 {
		t.Errorf("result sequence = %d, want 2", res.Sequence)
	}
}

func TestResultsSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.Results()
	ctx := context.Background()
	assessment := uuid.New()

	res, err := repo.Latest(ctx, assessment)
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if res != nil {
		t.Fatal("expected nil result when none exist")
	}

	first := scoring.Summary{OverallScore: 55, OverallBucket: "ORANGE"}
	second := scoring.Summary{
		OverallScore:  72.5,
		OverallBucket: "RED",
		Dimensions:    []scoring.DimensionScore{{Code: "SAFETY", Bucket: "RED", KnockoutTriggered: true}},
	}
	if _, err := repo.Save(ctx, assessment, "tpl", first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	saved, err := repo.Save(ctx, assessment, "tpl", second)
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	res, err = repo.Latest(ctx, assessment)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if res.Sequence != saved.Sequence {
		t.Errorf("sequence = %d, want %d", res.Sequence, saved.Sequence)
	}
	if res.Summary.OverallBucket != "RED" || len(res.Summary.KnockoutDimensions()) != 1 {
		t.Errorf("summary = %+v", res.Summary)
	}
	if res.TemplateID != "tpl" {
		t.Errorf("template id = %q", res.TemplateID)
	}
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("BLUEPRINT_DB", filepath.Join(dir, "env", "x.db"))
	p, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("env path: %v", err)
	}
	if p != filepath.Join(dir, "env", "x.db") {
		t.Errorf("path = %q", p)
	}

	t.Setenv("BLUEPRINT_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	p, err = DefaultDBPath()
	if err != nil {
		t.Fatalf("xdg path: %v", err)
	}
	if p != filepath.Join(dir, "blueprint", "blueprint.db") {
		t.Errorf("path = %q", p)
	}
}
