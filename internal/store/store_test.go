package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/fd1az/nft-auction/internal/logger"
)

type counterRecord struct {
	Name  string `gorm:"primaryKey"`
	Value int
}

type StoreSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	db, err := OpenMemory(logger.NewDiscard())
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(&counterRecord{}))
	s.db = db
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.db.Close())
}

func (s *StoreSuite) value(name string) int {
	var rec counterRecord
	err := s.db.Conn(s.ctx).Where("name = ?", name).First(&rec).Error
	if IsNotFound(err) {
		return -1
	}
	s.Require().NoError(err)
	return rec.Value
}

func (s *StoreSuite) TestCommit() {
	err := s.db.Transaction(s.ctx, func(ctx context.Context) error {
		return s.db.Conn(ctx).Create(&counterRecord{Name: "a", Value: 1}).Error
	})
	s.Require().NoError(err)
	s.Equal(1, s.value("a"))
}

func (s *StoreSuite) TestRollbackOnError() {
	boom := errors.New("boom")
	err := s.db.Transaction(s.ctx, func(ctx context.Context) error {
		if err := s.db.Conn(ctx).Create(&counterRecord{Name: "a", Value: 1}).Error; err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)
	s.Equal(-1, s.value("a"))
}

func (s *StoreSuite) TestNestedSeesOuterWrites() {
	err := s.db.Transaction(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.db.Conn(ctx).Create(&counterRecord{Name: "a", Value: 1}).Error)

		return s.db.Transaction(ctx, func(inner context.Context) error {
			s.True(InTransaction(inner))
			var rec counterRecord
			s.Require().NoError(s.db.Conn(inner).First(&rec, "name = ?", "a").Error)
			return s.db.Conn(inner).Model(&rec).Update("value", rec.Value+1).Error
		})
	})
	s.Require().NoError(err)
	s.Equal(2, s.value("a"))
}

func (s *StoreSuite) TestNestedFailureRollsBackToSavepoint() {
	err := s.db.Transaction(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.db.Conn(ctx).Create(&counterRecord{Name: "outer", Value: 1}).Error)

		inner := s.db.Transaction(ctx, func(inner context.Context) error {
			s.Require().NoError(s.db.Conn(inner).Create(&counterRecord{Name: "inner", Value: 1}).Error)
			return errors.New("revert")
		})
		s.Error(inner)
		return nil
	})
	s.Require().NoError(err)
	s.Equal(1, s.value("outer"))
	s.Equal(-1, s.value("inner"))
}

func (s *StoreSuite) TestAfterCommitHooks() {
	var fired []string

	err := s.db.Transaction(s.ctx, func(ctx context.Context) error {
		AfterCommit(ctx, func() { fired = append(fired, "outer") })

		_ = s.db.Transaction(ctx, func(inner context.Context) error {
			AfterCommit(inner, func() { fired = append(fired, "dropped") })
			return errors.New("revert")
		})

		_ = s.db.Transaction(ctx, func(inner context.Context) error {
			AfterCommit(inner, func() { fired = append(fired, "kept") })
			return nil
		})

		s.Empty(fired, "hooks wait for commit")
		return nil
	})
	s.Require().NoError(err)
	s.Equal([]string{"outer", "kept"}, fired)
}

func (s *StoreSuite) TestAfterCommitSkippedOnRollback() {
	fired := false
	_ = s.db.Transaction(s.ctx, func(ctx context.Context) error {
		AfterCommit(ctx, func() { fired = true })
		return errors.New("boom")
	})
	s.False(fired)
}

func (s *StoreSuite) TestSerialOrdering() {
	s.Require().NoError(s.db.Conn(s.ctx).Create(&counterRecord{Name: "n", Value: 0}).Error)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.db.Transaction(s.ctx, func(ctx context.Context) error {
				var rec counterRecord
				if err := s.db.Conn(ctx).First(&rec, "name = ?", "n").Error; err != nil {
					return err
				}
				return s.db.Conn(ctx).Model(&rec).Update("value", rec.Value+1).Error
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(20, s.value("n"))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "op"))

	err := Wrap(errors.New("locked"), "update auction")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_ERROR")
}
