package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"oblige-hq/warden/pkg/model"
)

// backends builds each backend under test. The SQLite backend runs on the
// pure-Go driver so the suite does not need cgo.
func backends(t *testing.T) map[string]Storage {
	t.Helper()

	sqlite, err := NewSQLiteStorage(&SQLiteConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "violations.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage returned error: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"sqlite": sqlite,
	}
}

func archivedViolation(id string, detectedAt time.Time) model.Violation {
	return model.Violation{
		ID:        id,
		RuleID:    "R-c1",
		EventType: "fee_post",
		Subject:   "Manager",
		Expected:  model.Expected{Op: "lte", LHS: "$.fee_rate", RHS: "1.75", Unit: "%"},
		Actual:    map[string]any{"subject": "Manager", "fee_rate": 0.02},
		Severity:  model.SeverityHigh,
		Evidence:  model.Evidence{Doc: "lpa.pdf", TextSnippet: "fee shall not exceed 1.75%"},

		DetectedAt: model.Timestamp(detectedAt),
	}
}

func TestStorageRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := archivedViolation("V-00000001", time.Now())
			want.Summary = "fee exceeded the negotiated cap"

			if err := s.Store(ctx, want); err != nil {
				t.Fatalf("Store returned error: %v", err)
			}

			got, err := s.Query(ctx, Query{ID: "V-00000001"})
			if err != nil {
				t.Fatalf("Query returned error: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("query returned %d records, want 1", len(got))
			}

			v := got[0]
			if v.ID != want.ID || v.RuleID != want.RuleID || v.Subject != want.Subject {
				t.Errorf("identity fields did not round-trip: %+v", v)
			}
			if v.Expected.Op != "lte" || v.Expected.Unit != "%" {
				t.Errorf("expected check did not round-trip: %+v", v.Expected)
			}
			if v.Actual["fee_rate"] != 0.02 {
				t.Errorf("actual payload did not round-trip: %+v", v.Actual)
			}
			if v.Evidence.Doc != "lpa.pdf" {
				t.Errorf("evidence did not round-trip: %+v", v.Evidence)
			}
			if v.Summary != want.Summary {
				t.Errorf("summary = %q, want %q", v.Summary, want.Summary)
			}
		})
	}
}

func TestStorageIdempotentStore(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			v := archivedViolation("V-00000001", time.Now())

			if err := s.Store(ctx, v); err != nil {
				t.Fatalf("Store returned error: %v", err)
			}
			if err := s.Store(ctx, v); err != nil {
				t.Fatalf("second Store returned error: %v", err)
			}

			count, err := s.Count(ctx, Query{})
			if err != nil {
				t.Fatalf("Count returned error: %v", err)
			}
			if count != 1 {
				t.Errorf("count = %d, want 1 after a duplicate store", count)
			}
		})
	}
}

func TestStorageQueryFilters(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

			v1 := archivedViolation("V-00000001", base)
			v2 := archivedViolation("V-00000002", base.Add(24*time.Hour))
			v2.RuleID = "R-c2"
			v2.Subject = "Fund"
			v2.EventType = "trade_allocated"
			v2.Severity = model.SeverityMedium
			for _, v := range []model.Violation{v1, v2} {
				if err := s.Store(ctx, v); err != nil {
					t.Fatalf("Store returned error: %v", err)
				}
			}

			since := base.Add(12 * time.Hour)
			tests := []struct {
				name string
				q    Query
				want []string
			}{
				{name: "all", q: Query{}, want: []string{"V-00000001", "V-00000002"}},
				{name: "by rule", q: Query{RuleID: "R-c2"}, want: []string{"V-00000002"}},
				{name: "by subject", q: Query{Subject: "Manager"}, want: []string{"V-00000001"}},
				{name: "by event type", q: Query{EventType: "trade_allocated"}, want: []string{"V-00000002"}},
				{name: "by severity", q: Query{Severity: model.SeverityHigh}, want: []string{"V-00000001"}},
				{name: "since", q: Query{Since: &since}, want: []string{"V-00000002"}},
				{name: "until", q: Query{Until: &since}, want: []string{"V-00000001"}},
				{name: "no match", q: Query{Subject: "Nobody"}, want: nil},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.Query(ctx, tt.q)
					if err != nil {
						t.Fatalf("Query returned error: %v", err)
					}
					var ids []string
					for _, v := range got {
						ids = append(ids, v.ID)
					}
					if len(ids) != len(tt.want) {
						t.Fatalf("query returned %v, want %v", ids, tt.want)
					}
					for i := range tt.want {
						if ids[i] != tt.want[i] {
							t.Fatalf("query returned %v, want %v", ids, tt.want)
						}
					}
				})
			}
		})
	}
}

func TestStorageQueryPagination(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				v := archivedViolation(fmt.Sprintf("V-%08d", i), base.Add(time.Duration(i)*time.Hour))
				if err := s.Store(ctx, v); err != nil {
					t.Fatalf("Store returned error: %v", err)
				}
			}

			page, err := s.Query(ctx, Query{Limit: 2, Offset: 1})
			if err != nil {
				t.Fatalf("Query returned error: %v", err)
			}
			if len(page) != 2 || page[0].ID != "V-00000001" || page[1].ID != "V-00000002" {
				t.Errorf("page = %+v, want entries 1 and 2 in detection order", page)
			}

			empty, err := s.Query(ctx, Query{Limit: 2, Offset: 10})
			if err != nil {
				t.Fatalf("Query returned error: %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("out-of-range page returned %d records", len(empty))
			}
		})
	}
}

func TestStorageDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

			v1 := archivedViolation("V-00000001", base)
			v2 := archivedViolation("V-00000002", base)
			v2.Subject = "Fund"
			for _, v := range []model.Violation{v1, v2} {
				if err := s.Store(ctx, v); err != nil {
					t.Fatalf("Store returned error: %v", err)
				}
			}

			deleted, err := s.Delete(ctx, Query{Subject: "Fund"})
			if err != nil {
				t.Fatalf("Delete returned error: %v", err)
			}
			if deleted != 1 {
				t.Fatalf("deleted = %d, want 1", deleted)
			}

			count, err := s.Count(ctx, Query{})
			if err != nil {
				t.Fatalf("Count returned error: %v", err)
			}
			if count != 1 {
				t.Errorf("count = %d, want 1 after deletion", count)
			}
		})
	}
}
