package cache

import (
	"fmt"
	"strconv"
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// OverrideCache persists per-actor read overrides so they survive
// process restarts. Entries are additive and never expire; staleness is
// decided at read time against the thread's updated_at.
type OverrideCache struct {
	redis *RedisCache
}

func NewOverrideCache(redis *RedisCache) *OverrideCache {
	return &OverrideCache{redis: redis}
}

func overrideKey(actorID uint, role models.ActorRole) string {
	return fmt.Sprintf("qa:overrides:%s:%d", role, actorID)
}

// Load returns the full override set for an actor and role. A missing
// key or unavailable cache yields an empty set, never an error the
// caller has to act on.
func (oc *OverrideCache) Load(actorID uint, role models.ActorRole) (models.OverrideSet, error) {
	set := models.OverrideSet{}
	if oc == nil || oc.redis == nil {
		return set, nil
	}
	fields, err := oc.redis.HashGetAll(overrideKey(actorID, role))
	if err != nil {
		return set, err
	}
	for field, raw := range fields {
		threadID, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			continue
		}
		var readAt time.Time
		if err := msgpack.Unmarshal([]byte(raw), &readAt); err != nil {
			continue
		}
		set[uint(threadID)] = readAt
	}
	return set, nil
}

// Save records one override. Failures are returned for logging but the
// in-memory set remains the working copy either way.
func (oc *OverrideCache) Save(actorID uint, role models.ActorRole, threadID uint, readAt time.Time) error {
	if oc == nil || oc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(readAt)
	if err != nil {
		return err
	}
	field := strconv.FormatUint(uint64(threadID), 10)
	return oc.redis.HashSet(overrideKey(actorID, role), field, data)
}
