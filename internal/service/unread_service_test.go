package service

import (
	"testing"
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/cache"
	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/noteduco342/LectureQA-backend/internal/realtime"
)

func newUnreadFixture() (*MockThreadRepository, *ReadStateService, *UnreadService) {
	threadRepo := NewMockThreadRepository()
	readState := NewReadStateService(threadRepo, NewMockOverrideStore(), NewRecordingNotifier())
	readState.SetAsyncRunner(syncRunner)
	// Nil redis: the cache no-ops and every ask recomputes.
	unread := NewUnreadService(threadRepo, readState, cache.NewUnreadCache(nil))
	return threadRepo, readState, unread
}

func TestCountForLectureDecrementsByOneOnMarkAsRead(t *testing.T) {
	threadRepo, readState, unread := newUnreadFixture()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	readState.SetClock(fixedClock(now))
	mentor := models.Actor{ID: 3, IsMentor: true}

	a := seedThread(threadRepo, 9, 5, now.Add(-2*time.Hour))
	seedThread(threadRepo, 9, 6, now.Add(-time.Hour))

	before, err := unread.CountForLecture(mentor, 9)
	if err != nil {
		t.Fatalf("CountForLecture error: %v", err)
	}
	if before != 2 {
		t.Fatalf("initial count = %d, want 2", before)
	}

	// Simulate the backing store being slow: the local assertion must
	// not depend on the async write landing.
	readState.SetAsyncRunner(func(fn func()) {})
	if err := readState.MarkAsRead(mentor, a.ID); err != nil {
		t.Fatalf("MarkAsRead error: %v", err)
	}

	after, _ := unread.CountForLecture(mentor, 9)
	if after != before-1 {
		t.Errorf("count after MarkAsRead = %d, want %d", after, before-1)
	}
}

func TestCountNeverNegative(t *testing.T) {
	threadRepo, readState, unread := newUnreadFixture()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	readState.SetClock(fixedClock(now))
	mentor := models.Actor{ID: 3, IsMentor: true}

	thread := seedThread(threadRepo, 9, 7, now.Add(-time.Hour))

	// Repeated mark-as-read from overlapping event sources.
	for i := 0; i < 4; i++ {
		readState.MarkAsRead(mentor, thread.ID)
	}
	count, _ := unread.CountForLecture(mentor, 9)
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if count < 0 {
		t.Errorf("count went negative: %d", count)
	}

	global, _ := unread.CountGlobal(mentor)
	if global != 0 {
		t.Errorf("global count = %d, want 0", global)
	}
}

func TestCountGlobalScopesVisibility(t *testing.T) {
	threadRepo, _, unread := newUnreadFixture()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Two lectures, two students. Teacher replies leave student 7's
	// thread unread on the student side.
	mine := seedThread(threadRepo, 9, 7, now.Add(-time.Hour))
	seedThread(threadRepo, 10, 6, now.Add(-time.Hour))
	threadRepo.MarkActivity(mine.ID, true, now)

	mentor := models.Actor{ID: 3, IsMentor: true}
	student := models.Actor{ID: 7}

	mentorCount, _ := unread.CountGlobal(mentor)
	if mentorCount != 1 {
		t.Errorf("mentor global count = %d, want 1 (one thread awaiting teacher)", mentorCount)
	}

	studentCount, _ := unread.CountGlobal(student)
	if studentCount != 1 {
		t.Errorf("student global count = %d, want 1 (own thread has teacher reply)", studentCount)
	}

	outsider := models.Actor{ID: 8}
	outsiderCount, _ := unread.CountGlobal(outsider)
	if outsiderCount != 0 {
		t.Errorf("outsider global count = %d, want 0", outsiderCount)
	}
}

func TestCountForLectureIgnoresOtherLectures(t *testing.T) {
	threadRepo, _, unread := newUnreadFixture()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mentor := models.Actor{ID: 3, IsMentor: true}

	seedThread(threadRepo, 9, 5, now)
	seedThread(threadRepo, 10, 6, now)

	count, _ := unread.CountForLecture(mentor, 9)
	if count != 1 {
		t.Errorf("lecture 9 count = %d, want 1", count)
	}
}

func TestMarkAsReadInvalidatesCachedCounts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	threadRepo := NewMockThreadRepository()
	bus := realtime.NewBus(realtime.Config{}, nil, nil)
	defer bus.Close()

	readState := NewReadStateService(threadRepo, NewMockOverrideStore(), bus)
	readState.SetClock(fixedClock(now))
	// The backing-store write never runs; the cached count must still
	// drop on the synthetic event alone.
	readState.SetAsyncRunner(func(fn func()) {})

	unreadCache := NewMockUnreadCache()
	unread := NewUnreadService(threadRepo, readState, unreadCache)
	sub := unread.WatchBus(bus)
	defer sub.Unsubscribe()

	mentor := models.Actor{ID: 3, IsMentor: true}
	a := seedThread(threadRepo, 9, 5, now.Add(-2*time.Hour))
	seedThread(threadRepo, 9, 6, now.Add(-time.Hour))

	before, err := unread.CountForLecture(mentor, 9)
	if err != nil {
		t.Fatalf("CountForLecture error: %v", err)
	}
	if before != 2 {
		t.Fatalf("initial count = %d, want 2", before)
	}
	if cached, ok := unreadCache.GetLectureCount(mentor.ID, models.RoleMentor, 9); !ok || cached != 2 {
		t.Fatalf("cache not warmed: got %d, %v", cached, ok)
	}

	if err := readState.MarkAsRead(mentor, a.ID); err != nil {
		t.Fatalf("MarkAsRead error: %v", err)
	}
	if unreadCache.Invalidations == 0 {
		t.Fatalf("mark-as-read left the count cache warm")
	}

	after, _ := unread.CountForLecture(mentor, 9)
	if after != 1 {
		t.Errorf("count right after MarkAsRead = %d, want 1", after)
	}
}

func TestThreadMutationInvalidatesCachedCounts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	threadRepo := NewMockThreadRepository()
	bus := realtime.NewBus(realtime.Config{}, nil, nil)
	defer bus.Close()

	readState := NewReadStateService(threadRepo, NewMockOverrideStore(), bus)
	readState.SetClock(fixedClock(now))
	unreadCache := NewMockUnreadCache()
	unread := NewUnreadService(threadRepo, readState, unreadCache)
	sub := unread.WatchBus(bus)
	defer sub.Unsubscribe()

	threads := NewThreadService(threadRepo, bus)
	mentor := models.Actor{ID: 3, IsMentor: true}

	seedThread(threadRepo, 9, 5, now.Add(-time.Hour))
	if count, _ := unread.CountGlobal(mentor); count != 1 {
		t.Fatalf("initial global count = %d, want 1", count)
	}

	if _, err := threads.Create(6, CreateThreadInput{LectureID: 9, QuestionText: "And pOH?"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if count, _ := unread.CountGlobal(mentor); count != 2 {
		t.Errorf("global count after new thread = %d, want 2 (stale cache served)", count)
	}
}
