package trackerbun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-vocabsheets/vocab"
	"github.com/uptrace/bun"
)

// Tracker stores export history in a Bun-backed database.
type Tracker struct {
	DB          *bun.DB
	Now         func() time.Time
	IDGenerator func() string
}

var _ vocab.Tracker = (*Tracker)(nil)

// NewTracker creates a Bun-backed tracker.
func NewTracker(db *bun.DB) *Tracker {
	return &Tracker{DB: db, Now: time.Now, IDGenerator: defaultIDGenerator()}
}

// EnsureSchema creates the history table and its index when missing.
func (t *Tracker) EnsureSchema(ctx context.Context) error {
	if t == nil || t.DB == nil {
		return errNoDB()
	}
	if _, err := t.DB.NewCreateTable().Model((*recordModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return vocab.NewError(vocab.KindInternal, "create export history table", err)
	}
	_, err := t.DB.NewCreateIndex().
		Model((*recordModel)(nil)).
		Index("export_history_created_at_idx").
		Column("created_at").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return vocab.NewError(vocab.KindInternal, "create export history index", err)
	}
	return nil
}

// Start creates a new export record.
func (t *Tracker) Start(ctx context.Context, record vocab.ExportRecord) (string, error) {
	if t == nil || t.DB == nil {
		return "", errNoDB()
	}
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = vocab.StateRunning
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	model := modelFromRecord(record)
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Complete records the page counts of a finished export.
func (t *Tracker) Complete(ctx context.Context, id string, result vocab.ExportResult) error {
	if t == nil || t.DB == nil {
		return errNoDB()
	}
	if id == "" {
		return errNoID()
	}

	query := t.DB.NewUpdate().Model((*recordModel)(nil)).
		Set("state = ?", vocab.StateCompleted).
		Set("pages_rendered = ?", result.PagesRendered).
		Set("pages_written = ?", result.PagesWritten).
		Set("trimmed = ?", result.Trimmed).
		Set("bytes = ?", result.Bytes).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Where("id = ?", id)
	return t.exec(ctx, id, query)
}

// Fail marks the export as failed.
func (t *Tracker) Fail(ctx context.Context, id string, err error) error {
	if t == nil || t.DB == nil {
		return errNoDB()
	}
	if id == "" {
		return errNoID()
	}

	message := ""
	if err != nil {
		message = err.Error()
	}
	query := t.DB.NewUpdate().Model((*recordModel)(nil)).
		Set("state = ?", vocab.StateFailed).
		Set("error = ?", message).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Where("id = ?", id)
	return t.exec(ctx, id, query)
}

// Skip marks an export that found nothing to capture.
func (t *Tracker) Skip(ctx context.Context, id string, reason string) error {
	if t == nil || t.DB == nil {
		return errNoDB()
	}
	if id == "" {
		return errNoID()
	}

	query := t.DB.NewUpdate().Model((*recordModel)(nil)).
		Set("state = ?", vocab.StateSkipped).
		Set("error = ?", reason).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Where("id = ?", id)
	return t.exec(ctx, id, query)
}

func (t *Tracker) exec(ctx context.Context, id string, query *bun.UpdateQuery) error {
	res, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return vocab.NewError(vocab.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return nil
}

// Status returns a record by ID.
func (t *Tracker) Status(ctx context.Context, id string) (vocab.ExportRecord, error) {
	if t == nil || t.DB == nil {
		return vocab.ExportRecord{}, errNoDB()
	}
	if id == "" {
		return vocab.ExportRecord{}, errNoID()
	}

	model := new(recordModel)
	err := t.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vocab.ExportRecord{}, vocab.NewError(vocab.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
		}
		return vocab.ExportRecord{}, err
	}
	return model.toRecord(), nil
}

// List returns records matching a filter, newest first.
func (t *Tracker) List(ctx context.Context, filter vocab.HistoryFilter) ([]vocab.ExportRecord, error) {
	if t == nil || t.DB == nil {
		return nil, errNoDB()
	}

	models := make([]recordModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	records := make([]vocab.ExportRecord, 0, len(models))
	for _, model := range models {
		records = append(records, model.toRecord())
	}
	return records, nil
}

type recordModel struct {
	bun.BaseModel `bun:"table:export_history,alias:export_history"`

	ID            string    `bun:",pk"`
	Filename      string    `bun:",notnull"`
	State         string    `bun:",notnull"`
	Sheets        int       `bun:"sheets"`
	PagesRendered int       `bun:"pages_rendered"`
	PagesWritten  int       `bun:"pages_written"`
	Trimmed       bool      `bun:"trimmed"`
	Bytes         int64     `bun:"bytes"`
	Error         string    `bun:"error"`
	CreatedAt     time.Time `bun:"created_at"`
	CompletedAt   time.Time `bun:"completed_at,nullzero"`
}

func modelFromRecord(record vocab.ExportRecord) recordModel {
	return recordModel{
		ID:            record.ID,
		Filename:      record.Filename,
		State:         string(record.State),
		Sheets:        record.Sheets,
		PagesRendered: record.PagesRendered,
		PagesWritten:  record.PagesWritten,
		Trimmed:       record.Trimmed,
		Bytes:         record.Bytes,
		Error:         record.Error,
		CreatedAt:     record.CreatedAt,
		CompletedAt:   record.CompletedAt,
	}
}

func (m recordModel) toRecord() vocab.ExportRecord {
	return vocab.ExportRecord{
		ID:            m.ID,
		Filename:      m.Filename,
		State:         vocab.ExportState(m.State),
		Sheets:        m.Sheets,
		PagesRendered: m.PagesRendered,
		PagesWritten:  m.PagesWritten,
		Trimmed:       m.Trimmed,
		Bytes:         m.Bytes,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
		CompletedAt:   m.CompletedAt,
	}
}

func errNoDB() error {
	return vocab.NewError(vocab.KindNotImpl, "tracker database not configured", nil)
}

func errNoID() error {
	return vocab.NewError(vocab.KindValidation, "export ID is required", nil)
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tracker) nextID() string {
	if t.IDGenerator != nil {
		return t.IDGenerator()
	}
	return defaultIDGenerator()()
}

func defaultIDGenerator() func() string {
	var counter uint64
	return func() string {
		id := atomic.AddUint64(&counter, 1)
		return fmt.Sprintf("exp-%d", id)
	}
}
