package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stakeledger/core/events"
	"stakeledger/core/types"
)

// DefaultLimit caps listing queries when the caller passes no limit.
const DefaultLimit = 100

// Record is one archived event.
type Record struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence   uint64    `gorm:"uniqueIndex;not null"`
	Type       string    `gorm:"index;not null"`
	Staker     string    `gorm:"index"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time
}

// TableName pins the table name across drivers.
func (Record) TableName() string { return "staking_events" }

// Event decodes the archived attributes.
func (r Record) Event() (*types.Event, error) {
	attrs := map[string]string{}
	if strings.TrimSpace(r.Attributes) != "" {
		if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("eventlog: decode attributes of %s: %w", r.ID, err)
		}
	}
	return &types.Event{Type: r.Type, Attributes: attrs}, nil
}

// AutoMigrate performs the schema migration for the archive.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Record{})
}

// Open connects to the archive database. postgres:// and postgresql:// DSNs
// use the postgres driver, anything else is treated as a sqlite path.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("eventlog: dsn required")
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	return gorm.Open(sqlite.Open(dsn), cfg)
}

// Store archives committed events and answers listing queries. It satisfies
// events.Emitter so it can sit behind the node's post-commit fanout.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	nowFn  func() time.Time

	mu  sync.Mutex
	seq uint64
}

// NewStore migrates the schema and resumes the sequence from the last
// archived row.
func NewStore(db *gorm.DB, log *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("eventlog: database required")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("eventlog: migrate: %w", err)
	}
	var last Record
	err := db.Order("sequence desc").Limit(1).Take(&last).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("eventlog: load sequence: %w", err)
	}
	return &Store{db: db, logger: log, nowFn: time.Now, seq: last.Sequence}, nil
}

// Append archives a rendered event.
func (s *Store) Append(ctx context.Context, evt *types.Event) (*Record, error) {
	if evt == nil {
		return nil, errors.New("eventlog: nil event")
	}
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return nil, fmt.Errorf("eventlog: encode attributes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &Record{
		ID:         uuid.New(),
		Sequence:   s.seq + 1,
		Type:       evt.Type,
		Staker:     firstNonEmpty(evt.Attr("staker"), evt.Attr("funder"), evt.Attr("owner")),
		Attributes: string(attrs),
		CreatedAt:  s.nowFn().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("eventlog: insert: %w", err)
	}
	s.seq = rec.Sequence
	return rec, nil
}

// Emit implements events.Emitter. Failures are logged, not retried.
func (s *Store) Emit(evt events.Event) {
	rendered := events.Render(evt)
	if rendered == nil {
		return
	}
	if _, err := s.Append(context.Background(), rendered); err != nil {
		s.logger.Error("archive event failed",
			slog.String("type", rendered.Type),
			slog.Any("error", err))
	}
}

// Query filters listing results. Zero values match everything.
type Query struct {
	Type   string
	Staker string
	// After returns only records with a larger sequence.
	After uint64
	Limit int
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Record, error) {
	limit := q.Limit
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	tx := s.db.WithContext(ctx).Model(&Record{})
	if t := strings.TrimSpace(q.Type); t != "" {
		tx = tx.Where("type = ?", t)
	}
	if staker := strings.TrimSpace(q.Staker); staker != "" {
		tx = tx.Where("staker = ?", staker)
	}
	if q.After > 0 {
		tx = tx.Where("sequence > ?", q.After)
	}
	var out []Record
	if err := tx.Order("sequence desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("eventlog: list: %w", err)
	}
	return out, nil
}

// Recent returns the latest limit records.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	return s.List(ctx, Query{Limit: limit})
}

// Count reports the number of archived events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("eventlog: count: %w", err)
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
