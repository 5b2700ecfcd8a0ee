package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/karanpatel1993/meal-planner-buddy/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	executions := []Execution{
		{Mode: "direct", Model: "gemini-1.5-flash", Outcome: OutcomeSuccess, LatencyMS: 1200, Timestamp: time.Now().UTC().Add(-2 * time.Minute)},
		{Mode: "direct", Model: "gemini-1.5-flash", Outcome: OutcomeFailure, LatencyMS: 300, Timestamp: time.Now().UTC().Add(-time.Minute)},
		{Mode: "proxy", Model: "gemini-1.5-flash", Outcome: OutcomeSuccess, LatencyMS: 2100, Timestamp: time.Now().UTC()},
	}
	for _, e := range executions {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(recent))
	}
	if recent[0].Mode != "proxy" {
		t.Errorf("expected newest first, got %+v", recent[0])
	}
	if recent[1].Outcome != OutcomeFailure {
		t.Errorf("unexpected second entry: %+v", recent[1])
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := Execution{Mode: "direct", Outcome: OutcomeSuccess, LatencyMS: 900, Timestamp: time.Now().UTC().AddDate(0, 0, -40)}
	fresh := Execution{Mode: "direct", Outcome: OutcomeSuccess, LatencyMS: 800}
	if err := s.Record(ctx, old); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, fresh); err != nil {
		t.Fatalf("Record: %v", err)
	}

	affected, err := s.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if affected != 1 {
		t.Errorf("expected 1 removed record, got %d", affected)
	}

	recent, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("expected 1 remaining record, got %d", len(recent))
	}
}
