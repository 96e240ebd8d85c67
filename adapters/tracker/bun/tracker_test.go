package trackerbun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-vocabsheets/vocab"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestTracker_StartStatusList(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))

	recordID, err := tracker.Start(ctx, vocab.ExportRecord{
		Filename: vocab.DefaultFilename,
		Sheets:   2,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if recordID == "" {
		t.Fatalf("expected record id")
	}

	got, err := tracker.Status(ctx, recordID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != vocab.StateRunning {
		t.Fatalf("expected running state, got %s", got.State)
	}
	if got.Filename != vocab.DefaultFilename || got.Sheets != 2 {
		t.Fatalf("unexpected record: %+v", got)
	}

	list, err := tracker.List(ctx, vocab.HistoryFilter{State: vocab.StateRunning})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list))
	}
}

func TestTracker_StateTransitions(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))

	completed, err := tracker.Start(ctx, vocab.ExportRecord{ID: "exp-1", Filename: "a.pdf", Sheets: 2})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tracker.Complete(ctx, completed, vocab.ExportResult{PagesRendered: 3, PagesWritten: 2, Trimmed: true, Bytes: 100}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := tracker.Status(ctx, completed)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != vocab.StateCompleted {
		t.Fatalf("expected completed state, got %s", got.State)
	}
	if got.PagesRendered != 3 || got.PagesWritten != 2 || !got.Trimmed || got.Bytes != 100 {
		t.Fatalf("unexpected completed record: %+v", got)
	}
	if got.CompletedAt.IsZero() {
		t.Fatalf("expected completed_at to be set")
	}

	failed, err := tracker.Start(ctx, vocab.ExportRecord{ID: "exp-2", Filename: "b.pdf"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tracker.Fail(ctx, failed, errors.New("engine down")); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, err = tracker.Status(ctx, failed)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != vocab.StateFailed || !strings.Contains(got.Error, "engine down") {
		t.Fatalf("unexpected failed record: %+v", got)
	}

	skipped, err := tracker.Start(ctx, vocab.ExportRecord{ID: "exp-3", Filename: "c.pdf"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tracker.Skip(ctx, skipped, "surface missing"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	got, err = tracker.Status(ctx, skipped)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != vocab.StateSkipped {
		t.Fatalf("expected skipped state, got %s", got.State)
	}
}

func TestTracker_ListNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := tracker.Start(ctx, vocab.ExportRecord{
			ID:        fmt.Sprintf("exp-%d", i),
			Filename:  vocab.DefaultFilename,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	}

	list, err := tracker.List(ctx, vocab.HistoryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if list[0].ID != "exp-2" || list[1].ID != "exp-1" {
		t.Fatalf("expected newest first, got %s, %s", list[0].ID, list[1].ID)
	}
}

func TestTracker_NotFound(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))

	if _, err := tracker.Status(ctx, "missing"); vocab.KindFromError(err) != vocab.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
	if err := tracker.Complete(ctx, "missing", vocab.ExportResult{}); vocab.KindFromError(err) != vocab.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
	if err := tracker.Fail(ctx, "", nil); vocab.KindFromError(err) != vocab.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTracker_NoDatabase(t *testing.T) {
	var tracker *Tracker
	if _, err := tracker.Start(context.Background(), vocab.ExportRecord{}); vocab.KindFromError(err) != vocab.KindNotImpl {
		t.Fatalf("expected not_implemented, got %v", err)
	}
}

func TestTracker_WithExporter(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))

	surface := vocab.SurfaceRendererFunc(func(ctx context.Context, sheets []vocab.Sheet, opts vocab.SurfaceOptions) (*vocab.Surface, error) {
		return nil, vocab.NewError(vocab.KindMissingSurface, "no surface", nil)
	})
	exporter := vocab.NewExporter(surface, vocab.RenderServiceFunc(func(ctx context.Context, s *vocab.Surface, opts vocab.RenderOptions) (vocab.Document, error) {
		t.Fatalf("service must not run without a surface")
		return nil, nil
	}))
	exporter.Tracker = tracker

	var out strings.Builder
	result, err := exporter.Export(ctx, vocab.Paginate([]vocab.Item{vocab.NewTextItem("a")}), &out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("expected skipped export")
	}

	list, err := tracker.List(ctx, vocab.HistoryFilter{State: vocab.StateSkipped})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != result.ID {
		t.Fatalf("expected skipped record %q, got %+v", result.ID, list)
	}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := NewTracker(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}
