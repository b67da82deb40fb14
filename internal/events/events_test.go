package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/store"
)

var auctionAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func newLog(t *testing.T) (*Log, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory(logger.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l, err := NewLog(db, NewBus(), clock.NewManual(time.Unix(1_700_000_000, 0).UTC()))
	require.NoError(t, err)
	return l, db
}

func TestLog_PublishesAfterCommit(t *testing.T) {
	l, db := newLog(t)
	ctx := context.Background()
	ch, cancel := l.Bus().Subscribe(4)
	defer cancel()

	err := db.Transaction(ctx, func(ctx context.Context) error {
		err := l.Emit(ctx, BidPlaced, auctionAddr, BidPlacedPayload{Auction: auctionAddr, Amount: "100"})
		require.NoError(t, err)
		assert.Len(t, ch, 0, "nothing published before commit")
		return nil
	})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, BidPlaced, ev.Name)
		var p BidPlacedPayload
		require.NoError(t, ev.Decode(&p))
		assert.Equal(t, "100", p.Amount)
	default:
		t.Fatal("event not published")
	}
}

func TestLog_RolledBackEventsDisappear(t *testing.T) {
	l, db := newLog(t)
	ctx := context.Background()
	ch, cancel := l.Bus().Subscribe(4)
	defer cancel()

	err := db.Transaction(ctx, func(ctx context.Context) error {
		require.NoError(t, l.Emit(ctx, AuctionEnded, auctionAddr, AuctionEndedPayload{}))
		return errors.New("transfer failed")
	})
	require.Error(t, err)

	assert.Len(t, ch, 0)
	evs, err := l.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestLog_ListFilters(t *testing.T) {
	l, db := newLog(t)
	ctx := context.Background()
	other := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	require.NoError(t, db.Transaction(ctx, func(ctx context.Context) error {
		require.NoError(t, l.Emit(ctx, AuctionCreated, other, AuctionCreatedPayload{Auction: auctionAddr}))
		require.NoError(t, l.Emit(ctx, BidPlaced, auctionAddr, BidPlacedPayload{}))
		return l.Emit(ctx, BidPlaced, auctionAddr, BidPlacedPayload{})
	}))

	all, err := l.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].Seq, all[1].Seq)

	byEmitter, err := l.List(ctx, Filter{Emitter: &auctionAddr})
	require.NoError(t, err)
	assert.Len(t, byEmitter, 2)

	after, err := l.List(ctx, Filter{AfterSeq: all[1].Seq})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, all[2].ID, after[0].ID)

	byName, err := l.List(ctx, Filter{Name: AuctionCreated})
	require.NoError(t, err)
	assert.Len(t, byName, 1)
}

func TestBus_EvictsSlowSubscriber(t *testing.T) {
	b := NewBus()
	slow, _ := b.Subscribe(1)
	fast, cancel := b.Subscribe(8)
	defer cancel()

	b.Publish(Event{Name: "a"})
	b.Publish(Event{Name: "b"})

	assert.Equal(t, 1, b.Subscribers())
	<-slow
	_, open := <-slow
	assert.False(t, open)
	assert.Len(t, fast, 2)
}

func TestBus_UnsubscribeTwice(t *testing.T) {
	b := NewBus()
	_, cancel := b.Subscribe(1)
	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers())
}
