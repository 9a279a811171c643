package cache

import (
	"fmt"
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for different cache types
const (
	UnreadCountTTL = 1 * time.Minute
)

// UnreadCache fronts the aggregator recompute with short-lived counts.
type UnreadCache struct {
	redis *RedisCache
}

func NewUnreadCache(redis *RedisCache) *UnreadCache {
	return &UnreadCache{redis: redis}
}

func lectureCountKey(actorID uint, role models.ActorRole, lectureID uint) string {
	return fmt.Sprintf("qa:unread:%s:%d:lecture:%d", role, actorID, lectureID)
}

func globalCountKey(actorID uint, role models.ActorRole) string {
	return fmt.Sprintf("qa:unread:%s:%d:global", role, actorID)
}

func (uc *UnreadCache) GetLectureCount(actorID uint, role models.ActorRole, lectureID uint) (int, bool) {
	return uc.get(lectureCountKey(actorID, role, lectureID))
}

func (uc *UnreadCache) SetLectureCount(actorID uint, role models.ActorRole, lectureID uint, count int) error {
	return uc.set(lectureCountKey(actorID, role, lectureID), count)
}

func (uc *UnreadCache) GetGlobalCount(actorID uint, role models.ActorRole) (int, bool) {
	return uc.get(globalCountKey(actorID, role))
}

func (uc *UnreadCache) SetGlobalCount(actorID uint, role models.ActorRole, count int) error {
	return uc.set(globalCountKey(actorID, role), count)
}

// InvalidateAll drops every cached count. Called on any refresh signal;
// counts are always recomputed, never patched in place.
func (uc *UnreadCache) InvalidateAll() error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	return uc.redis.DeletePattern("qa:unread:*")
}

func (uc *UnreadCache) get(key string) (int, bool) {
	if uc == nil || uc.redis == nil {
		return 0, false
	}
	data, err := uc.redis.Get(key)
	if err != nil || data == nil {
		return 0, false
	}
	var count int
	if err := msgpack.Unmarshal(data, &count); err != nil {
		return 0, false
	}
	return count, true
}

func (uc *UnreadCache) set(key string, count int) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(count)
	if err != nil {
		return err
	}
	return uc.redis.Set(key, data, UnreadCountTTL)
}
