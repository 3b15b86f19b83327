package journal

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/quantumroom/engine/events"
	"github.com/nathoo/quantumroom/types"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecordAndEntries(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()

	if store.SessionID() == "" {
		t.Fatal("empty session id")
	}
	for _, e := range []Entry{
		{Level: 1, Round: 1, ChoiceID: "observe-door", Result: "failure", NextAction: "retry", Remaining: 28},
		{Level: 1, Round: 1, ChoiceID: "ignore-door", Result: "success", NextAction: "advance", ScoreDelta: 160, Score: 160, Remaining: 25},
		{Level: 2, Round: 1, ChoiceID: "flip-left", Outcome: 1, Result: "partial", NextAction: "continue", Forced: true},
	} {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := store.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	if got[1].ChoiceID != "ignore-door" || got[1].ScoreDelta != 160 {
		t.Errorf("second entry = %+v", got[1])
	}
	if !got[2].Forced || got[2].Outcome != 1 {
		t.Errorf("third entry = %+v", got[2])
	}
	for _, e := range got {
		if e.SessionID != store.SessionID() {
			t.Errorf("session id = %q", e.SessionID)
		}
		if e.RecordedAt.IsZero() {
			t.Error("recorded_at not set")
		}
	}
}

func TestSessionsAreSeparate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	first, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Record(ctx, Entry{Level: 1, ChoiceID: "a"}); err != nil {
		t.Fatal(err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	got, err := second.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("new session sees %d old entries", len(got))
	}
}

func TestHandler(t *testing.T) {
	store := openTemp(t)
	bus := events.NewBus()
	bus.On(events.ChoiceResolved, store.Handler(nil))

	bus.Dispatch([]types.Event{
		{Type: events.TimerTick, Data: map[string]any{"remaining": 10}},
		{Type: events.ChoiceResolved, Data: map[string]any{
			"number":      3,
			"round":       2,
			"choice_id":   "path-alpha",
			"outcome":     0,
			"result":      "success",
			"next_action": "advance",
			"forced":      false,
			"remaining":   12,
			"score_delta": 150,
			"score":       420,
		}},
	})

	got, err := store.Entries(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	e := got[0]
	if e.Level != 3 || e.Round != 2 || e.ChoiceID != "path-alpha" || e.Score != 420 || e.Remaining != 12 {
		t.Errorf("entry = %+v", e)
	}
}

func TestHandler_LogsWriteFailure(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	var buf bytes.Buffer
	h := store.Handler(slog.New(slog.NewTextHandler(&buf, nil)))
	h(types.Event{Type: events.ChoiceResolved, Data: map[string]any{"choice_id": "x"}})

	if !strings.Contains(buf.String(), "journal write failed") {
		t.Errorf("log = %q", buf.String())
	}
}
