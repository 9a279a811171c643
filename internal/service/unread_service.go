package service

import (
	"github.com/noteduco342/LectureQA-backend/internal/apperr"
	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/noteduco342/LectureQA-backend/internal/realtime"
	"github.com/noteduco342/LectureQA-backend/internal/repository"
)

// UnreadCountCache fronts the count recompute with short-lived entries.
// Implemented by cache.UnreadCache.
type UnreadCountCache interface {
	GetLectureCount(actorID uint, role models.ActorRole, lectureID uint) (int, bool)
	SetLectureCount(actorID uint, role models.ActorRole, lectureID uint, count int) error
	GetGlobalCount(actorID uint, role models.ActorRole) (int, bool)
	SetGlobalCount(actorID uint, role models.ActorRole, count int) error
	InvalidateAll() error
}

// UnreadService derives badge and bell counts. It owns no state of its
// own: counts are recomputed from threads plus overrides on every ask,
// never incrementally patched, so overlapping event sources cannot push
// them negative.
type UnreadService struct {
	threadRepo  repository.ThreadRepositoryInterface
	readState   *ReadStateService
	unreadCache UnreadCountCache
}

func NewUnreadService(threadRepo repository.ThreadRepositoryInterface, readState *ReadStateService, unreadCache UnreadCountCache) *UnreadService {
	return &UnreadService{threadRepo: threadRepo, readState: readState, unreadCache: unreadCache}
}

// WatchBus drops cached counts whenever a refresh signal fires, so the
// first read after any mutation recomputes instead of serving the
// pre-mutation snapshot for a full TTL. Every mutating path, including
// the synthetic mark-as-read event, reaches the teacher-global channel,
// which makes it the single invalidation feed.
func (s *UnreadService) WatchBus(bus *realtime.Bus) *realtime.Subscription {
	return bus.SubscribeTeacherGlobal(func(realtime.Event) {
		s.Invalidate()
	})
}

func baseRole(actor models.Actor) models.ActorRole {
	if actor.IsMentor {
		return models.RoleMentor
	}
	return models.RoleStudentOwner
}

// CountForLecture returns how many of a lecture's threads are
// effectively unread for the actor. Clamped at zero.
func (s *UnreadService) CountForLecture(actor models.Actor, lectureID uint) (int, error) {
	role := baseRole(actor)
	if count, ok := s.unreadCache.GetLectureCount(actor.ID, role, lectureID); ok {
		return count, nil
	}
	threads, err := s.threadRepo.ListByLecture(lectureID)
	if err != nil {
		return 0, apperr.Storage("count unread", err)
	}
	count := s.countUnread(actor, threads)
	// Cached best-effort; recompute is always correct without it.
	_ = s.unreadCache.SetLectureCount(actor.ID, role, lectureID, count)
	return count, nil
}

// CountGlobal aggregates across every lecture the actor can see:
// mentors see all threads, students their own.
func (s *UnreadService) CountGlobal(actor models.Actor) (int, error) {
	role := baseRole(actor)
	if count, ok := s.unreadCache.GetGlobalCount(actor.ID, role); ok {
		return count, nil
	}
	var (
		threads []models.Thread
		err     error
	)
	if actor.IsMentor {
		threads, err = s.threadRepo.ListAll()
	} else {
		threads, err = s.threadRepo.ListForStudent(actor.ID)
	}
	if err != nil {
		return 0, apperr.Storage("count unread", err)
	}
	count := s.countUnread(actor, threads)
	_ = s.unreadCache.SetGlobalCount(actor.ID, role, count)
	return count, nil
}

func (s *UnreadService) countUnread(actor models.Actor, threads []models.Thread) int {
	overrides := s.readState.OverridesFor(actor.ID, baseRole(actor))
	count := 0
	for i := range threads {
		thread := &threads[i]
		role := actor.RoleFor(thread)
		if role == models.RoleOther {
			continue
		}
		if !models.EffectiveRead(thread, role, overrides) {
			count++
		}
	}
	if count < 0 {
		count = 0
	}
	return count
}

// Invalidate drops every cached count. Wired to the bus refresh signal.
func (s *UnreadService) Invalidate() {
	if err := s.unreadCache.InvalidateAll(); err != nil {
		// Stale entries expire on their own TTL; nothing else to do.
		return
	}
}
