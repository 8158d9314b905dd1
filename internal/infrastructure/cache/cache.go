// Package cache keeps recently read meeting types and owners in memory.
// Both are never updated in place, so entries only leave by eviction.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/example/meetsched/internal/domain/scheduling"
)

// Store decorates a scheduling.Store with LRU caches for the lookups that
// every availability request and booking repeats.
type Store struct {
	scheduling.Store

	meetingTypes *lru.Cache[string, scheduling.MeetingType]
	owners       *lru.Cache[string, scheduling.Owner]
	logger       *zap.Logger
}

// New returns next unchanged when size is not positive.
func New(next scheduling.Store, size int, logger *zap.Logger) (scheduling.Store, error) {
	if size <= 0 {
		return next, nil
	}
	mts, err := lru.New[string, scheduling.MeetingType](size)
	if err != nil {
		return nil, err
	}
	owners, err := lru.New[string, scheduling.Owner](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{Store: next, meetingTypes: mts, owners: owners, logger: logger}, nil
}

func (s *Store) MeetingType(ctx context.Context, id string) (scheduling.MeetingType, error) {
	if mt, ok := s.meetingTypes.Get(id); ok {
		return mt, nil
	}
	s.logger.Debug("cache.meeting_type.miss", zap.String("meeting_type_id", id))
	mt, err := s.Store.MeetingType(ctx, id)
	if err != nil {
		return mt, err
	}
	s.meetingTypes.Add(id, mt)
	return mt, nil
}

func (s *Store) Owner(ctx context.Context, id string) (scheduling.Owner, error) {
	if o, ok := s.owners.Get(id); ok {
		return o, nil
	}
	o, err := s.Store.Owner(ctx, id)
	if err != nil {
		return o, err
	}
	s.owners.Add(id, o)
	return o, nil
}

// Forget drops a meeting type, e.g. after it was deleted out of band.
func (s *Store) Forget(meetingTypeID string) {
	s.meetingTypes.Remove(meetingTypeID)
}

func (s *Store) Len() int { return s.meetingTypes.Len() + s.owners.Len() }
