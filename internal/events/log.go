package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/store"
)

const defaultListLimit = 100

type record struct {
	Seq        uint64 `gorm:"primaryKey;autoIncrement"`
	ID         string `gorm:"type:varchar(36);uniqueIndex"`
	Name       string `gorm:"type:varchar(64);index"`
	Emitter    string `gorm:"type:varchar(42);index"`
	Payload    string `gorm:"type:text"`
	OccurredAt time.Time
}

func (record) TableName() string { return "events" }

func (r record) toEvent() Event {
	return Event{
		ID:         uuid.MustParse(r.ID),
		Seq:        r.Seq,
		Name:       r.Name,
		Emitter:    common.HexToAddress(r.Emitter),
		Payload:    json.RawMessage(r.Payload),
		OccurredAt: r.OccurredAt.UTC(),
	}
}

// Filter narrows List results.
type Filter struct {
	AfterSeq uint64
	Emitter  *common.Address
	Name     string
	Limit    int
}

// Log persists events inside the ledger transaction and publishes them on
// the bus once that transaction commits.
type Log struct {
	db    *store.DB
	bus   *Bus
	clock clock.Clock
}

// NewLog creates the event log and its table.
func NewLog(db *store.DB, bus *Bus, clk clock.Clock) (*Log, error) {
	if err := db.Migrate(&record{}); err != nil {
		return nil, err
	}
	return &Log{db: db, bus: bus, clock: clk}, nil
}

// Bus returns the bus committed events are published on.
func (l *Log) Bus() *Bus {
	return l.bus
}

// Emit records an event. It must be called within the transaction of the
// operation that produced it.
func (l *Log) Emit(ctx context.Context, name string, emitter common.Address, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperror.Internal(apperror.CodeInternalError, "encode "+name, err)
	}

	rec := record{
		ID:         uuid.NewString(),
		Name:       name,
		Emitter:    emitter.Hex(),
		Payload:    string(body),
		OccurredAt: l.clock.Now(),
	}
	if err := l.db.Conn(ctx).Create(&rec).Error; err != nil {
		return store.Wrap(err, "emit "+name)
	}

	ev := rec.toEvent()
	store.AfterCommit(ctx, func() { l.bus.Publish(ev) })
	return nil
}

// List returns committed events in commit order.
func (l *Log) List(ctx context.Context, f Filter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	q := l.db.Conn(ctx).Where("seq > ?", f.AfterSeq)
	if f.Emitter != nil {
		q = q.Where("emitter = ?", f.Emitter.Hex())
	}
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}

	var recs []record
	if err := q.Order("seq ASC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, store.Wrap(err, "list events")
	}

	out := make([]Event, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toEvent())
	}
	return out, nil
}
