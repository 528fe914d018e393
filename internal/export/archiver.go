package export

import (
	"bytes"
	"context"
	"path"
	"sync"
	"time"

	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/storage/archive"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ArchivePrefix is the root of every archived export
const ArchivePrefix = "exports"

// Recorder receives export outcomes per format
type Recorder interface {
	RecordExport(format, status string)
}

// Archiver writes export artefacts into archive storage, on demand or on a cron schedule.
type Archiver struct {
	store   archive.Storage
	src     client.Source
	limit   int
	timeout time.Duration
	logger  *zap.Logger
	rec     Recorder
	now     func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// ArchiverOption configures an Archiver
type ArchiverOption func(*Archiver)

func WithArchiverLogger(logger *zap.Logger) ArchiverOption {
	return func(a *Archiver) {
		a.logger = logger
	}
}

func WithArchiverRecorder(rec Recorder) ArchiverOption {
	return func(a *Archiver) {
		a.rec = rec
	}
}

// WithSignalsLimit sets how many signals a full export requests.
func WithSignalsLimit(n int) ArchiverOption {
	return func(a *Archiver) {
		if n > 0 {
			a.limit = n
		}
	}
}

// NewArchiver creates an archiver over store, reading from src.
func NewArchiver(store archive.Storage, src client.Source, opts ...ArchiverOption) *Archiver {
	a := &Archiver{
		store:   store,
		src:     src,
		limit:   1000,
		timeout: 2 * time.Minute,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the storage key of a file exported at t: exports/YYYY/MM/DD/<file>.
func Key(file string, t time.Time) string {
	return path.Join(ArchivePrefix, t.UTC().Format("2006/01/02"), file)
}

// SaveCSV archives a signals CSV and returns its key.
func (a *Archiver) SaveCSV(ctx context.Context, signals []core.Signal) (string, error) {
	now := a.now()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, signals); err != nil {
		a.record("csv", "error")
		return "", err
	}
	return a.put(ctx, "csv", Key(FileName(SignalsPrefix, "csv", now), now), buf.Bytes(), "text/csv")
}

// SaveFull fetches a full bundle and archives it as JSON.
func (a *Archiver) SaveFull(ctx context.Context) (string, *Bundle, error) {
	now := a.now()
	b, err := Full(ctx, a.src, a.limit, now)
	if err != nil {
		a.record("json", "error")
		return "", nil, err
	}
	key, err := a.saveBundle(ctx, b, now)
	if err != nil {
		return "", nil, err
	}
	return key, b, nil
}

// Snapshot archives the full bundle plus a CSV of its signals from one fetch.
func (a *Archiver) Snapshot(ctx context.Context) ([]string, error) {
	jsonKey, b, err := a.SaveFull(ctx)
	if err != nil {
		return nil, err
	}
	csvKey, err := a.SaveCSV(ctx, b.Signals)
	if err != nil {
		return []string{jsonKey}, err
	}
	return []string{jsonKey, csvKey}, nil
}

// List returns archived exports, oldest day first.
func (a *Archiver) List(ctx context.Context) ([]archive.Object, error) {
	objects, err := a.store.List(ctx, ArchivePrefix)
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	return objects, nil
}

// Schedule runs Snapshot on a standard five-field cron spec (UTC) until Stop.
func (a *Archiver) Schedule(spec string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cron != nil {
		a.cron.Stop()
	}
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, a.scheduled); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	c.Start()
	a.cron = c

	a.logger.Info("export schedule started", zap.String("schedule", spec))
	return nil
}

// Stop halts the schedule and waits for a running snapshot to finish.
func (a *Archiver) Stop() {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (a *Archiver) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	keys, err := a.Snapshot(ctx)
	if err != nil {
		a.logger.Error("scheduled export failed", zap.Error(err))
		return
	}
	a.logger.Info("scheduled export archived", zap.Strings("keys", keys))
}

func (a *Archiver) saveBundle(ctx context.Context, b *Bundle, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, b); err != nil {
		a.record("json", "error")
		return "", err
	}
	return a.put(ctx, "json", Key(FileName(FullPrefix, "json", now), now), buf.Bytes(), "application/json")
}

func (a *Archiver) put(ctx context.Context, format, key string, data []byte, contentType string) (string, error) {
	if err := a.store.Put(ctx, key, data, contentType); err != nil {
		a.record(format, "error")
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}
	a.record(format, "ok")
	a.logger.Debug("export archived", zap.String("key", key), zap.Int("bytes", len(data)))
	return key, nil
}

func (a *Archiver) record(format, status string) {
	if a.rec != nil {
		a.rec.RecordExport(format, status)
	}
}
