package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/apperr"
	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/noteduco342/LectureQA-backend/internal/realtime"
	"github.com/noteduco342/LectureQA-backend/internal/repository"
)

// ReadStateService reconciles the server-authoritative read flags with
// the per-actor override cache into an effective read status, and drives
// optimistic mark-as-read. The effective status is computed fresh on
// every ask (see models.EffectiveRead); this service owns the override
// lifecycle and the optimistic write path.
type ReadStateService struct {
	threadRepo repository.ThreadRepositoryInterface
	overrides  OverrideStore
	notifier   ChangeNotifier
	clock      func() time.Time
	async      func(fn func())

	mu    sync.Mutex
	local map[string]models.OverrideSet
}

func NewReadStateService(threadRepo repository.ThreadRepositoryInterface, overrides OverrideStore, notifier ChangeNotifier) *ReadStateService {
	return &ReadStateService{
		threadRepo: threadRepo,
		overrides:  overrides,
		notifier:   notifier,
		clock:      time.Now,
		async:      func(fn func()) { go fn() },
		local:      make(map[string]models.OverrideSet),
	}
}

// SetClock replaces the time source. Tests only.
func (s *ReadStateService) SetClock(clock func() time.Time) { s.clock = clock }

// SetAsyncRunner replaces the goroutine runner so tests can make the
// backing-store write synchronous. Tests only.
func (s *ReadStateService) SetAsyncRunner(run func(fn func())) { s.async = run }

func actorKey(actorID uint, role models.ActorRole) string {
	return fmt.Sprintf("%s:%d", role, actorID)
}

// OverridesFor returns a copy of the actor's override set, loading it
// from the durable cache the first time an actor shows up after a
// restart.
func (s *ReadStateService) OverridesFor(actorID uint, role models.ActorRole) models.OverrideSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.loadLocked(actorID, role)
	out := make(models.OverrideSet, len(set))
	for id, at := range set {
		out[id] = at
	}
	return out
}

func (s *ReadStateService) loadLocked(actorID uint, role models.ActorRole) models.OverrideSet {
	key := actorKey(actorID, role)
	if set, ok := s.local[key]; ok {
		return set
	}
	set, err := s.overrides.Load(actorID, role)
	if err != nil {
		log.Printf("Failed to load read overrides for %s: %v", key, err)
		set = models.OverrideSet{}
	}
	if set == nil {
		set = models.OverrideSet{}
	}
	s.local[key] = set
	return set
}

// EffectiveRead reports the reconciled read status of a thread for an
// actor. RoleOther always reads as true.
func (s *ReadStateService) EffectiveRead(actor models.Actor, thread *models.Thread) bool {
	role := actor.RoleFor(thread)
	if role == models.RoleOther {
		return true
	}
	return models.EffectiveRead(thread, role, s.OverridesFor(actor.ID, role))
}

// MarkAsRead marks a thread read for the actor. Idempotent: any number
// of calls after the first is a no-op. The protocol is optimistic —
//
//  1. already effectively read: nothing to do;
//  2. record a local override at the current time;
//  3. emit the synthetic unread-changed event immediately so every
//     surface recomputes without a network round trip;
//  4. persist the server flag asynchronously; success re-emits the
//     event for late-mounted listeners, failure is logged and the
//     override stands in permanently.
func (s *ReadStateService) MarkAsRead(actor models.Actor, threadID uint) error {
	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return mapDBErr("mark as read", err)
	}
	role := actor.RoleFor(thread)
	if role == models.RoleOther {
		return apperr.PermissionDenied("mark as read")
	}

	s.mu.Lock()
	set := s.loadLocked(actor.ID, role)
	if models.EffectiveRead(thread, role, set) {
		s.mu.Unlock()
		return nil
	}
	now := s.clock()
	set[threadID] = now
	s.mu.Unlock()

	s.notifier.NotifyManualRead(thread.LectureID, threadID, role)

	s.async(func() {
		if err := s.overrides.Save(actor.ID, role, threadID, now); err != nil {
			log.Printf("Failed to persist read override for thread %d: %v", threadID, err)
		}
		if err := s.threadRepo.SetReadFlag(threadID, role, true); err != nil {
			// Deliberately not reverted: the override is the accepted
			// permanent fallback for a write that never lands.
			log.Printf("Failed to persist read flag for thread %d (%s): %v", threadID, role, err)
			return
		}
		// Re-emit so surfaces mounted after the synthetic event still
		// recompute, on the same two channels the synthetic event
		// reached. The dedupe guard keeps delta-appliers from counting
		// this twice.
		for _, scope := range []realtime.Scope{realtime.ScopeLecture, realtime.ScopeTeacherGlobal} {
			s.notifier.Publish(realtime.Event{
				Kind:      realtime.EventUnreadChanged,
				Scope:     scope,
				LectureID: thread.LectureID,
				ThreadID:  threadID,
				Role:      role,
			})
		}
	})
	return nil
}
