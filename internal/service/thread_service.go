package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/noteduco342/LectureQA-backend/internal/apperr"
	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/noteduco342/LectureQA-backend/internal/realtime"
	"github.com/noteduco342/LectureQA-backend/internal/repository"
	"gorm.io/gorm"
)

type ThreadService struct {
	threadRepo repository.ThreadRepositoryInterface
	notifier   ChangeNotifier
}

func NewThreadService(threadRepo repository.ThreadRepositoryInterface, notifier ChangeNotifier) *ThreadService {
	return &ThreadService{threadRepo: threadRepo, notifier: notifier}
}

type CreateThreadInput struct {
	LectureID      uint    `json:"lecture_id"`
	QuestionText   string  `json:"question_text"`
	Publish        bool    `json:"publish"`
	OfficialAnswer *string `json:"official_answer"`
}

// Create opens a new Q&A thread for a student question. New threads are
// unread for the teacher side and read for the asking student.
func (s *ThreadService) Create(studentID uint, input CreateThreadInput) (*models.Thread, error) {
	if strings.TrimSpace(input.QuestionText) == "" {
		return nil, ErrEmptyQuestion
	}
	thread := &models.Thread{
		LectureID:       input.LectureID,
		StudentID:       studentID,
		QuestionText:    input.QuestionText,
		OfficialAnswer:  input.OfficialAnswer,
		IsPublished:     input.Publish,
		IsReadByTeacher: false,
		IsReadByStudent: true,
	}
	if err := s.threadRepo.Create(thread); err != nil {
		return nil, apperr.Storage("create thread", err)
	}
	s.notifyThreadChanged(thread.LectureID, thread.ID)
	return thread, nil
}

func (s *ThreadService) Get(actor models.Actor, threadID uint) (*models.Thread, error) {
	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return nil, mapDBErr("get thread", err)
	}
	if actor.RoleFor(thread) == models.RoleOther {
		// Visible in listings when published, but messages are never
		// loaded for actors outside the conversation.
		thread.Messages = nil
	}
	return thread, nil
}

// ListByLecture returns a lecture's threads sorted descending by last
// activity (latest message, else creation). Ties break by id so the
// order is stable across refreshes.
func (s *ThreadService) ListByLecture(lectureID uint) ([]models.Thread, error) {
	threads, err := s.threadRepo.ListByLecture(lectureID)
	if err != nil {
		return nil, apperr.Storage("list threads", err)
	}
	sortThreads(threads)
	return threads, nil
}

func sortThreads(threads []models.Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		ai, aj := threads[i].LastActivity(), threads[j].LastActivity()
		if ai.Equal(aj) {
			return threads[i].ID < threads[j].ID
		}
		return ai.After(aj)
	})
}

func (s *ThreadService) EditQuestionText(actor models.Actor, threadID uint, text string) error {
	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return mapDBErr("edit question", err)
	}
	if actor.RoleFor(thread) == models.RoleOther {
		return apperr.PermissionDenied("edit question")
	}
	if err := s.threadRepo.UpdateQuestionText(threadID, text); err != nil {
		return mapDBErr("edit question", err)
	}
	s.notifyThreadChanged(thread.LectureID, threadID)
	return nil
}

func (s *ThreadService) TogglePublish(actor models.Actor, threadID uint, published bool) error {
	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return mapDBErr("toggle publish", err)
	}
	if !actor.IsMentor {
		return apperr.PermissionDenied("toggle publish")
	}
	if err := s.threadRepo.SetPublished(threadID, published); err != nil {
		return mapDBErr("toggle publish", err)
	}
	s.notifyThreadChanged(thread.LectureID, threadID)
	return nil
}

// Delete removes a thread and cascades to its messages. Open
// subscriptions on the thread scope observe the change and are expected
// to tear themselves down.
func (s *ThreadService) Delete(actor models.Actor, threadID uint) error {
	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return mapDBErr("delete thread", err)
	}
	if actor.RoleFor(thread) == models.RoleOther {
		return apperr.PermissionDenied("delete thread")
	}
	if err := s.threadRepo.Delete(threadID); err != nil {
		return mapDBErr("delete thread", err)
	}
	s.notifier.Publish(realtime.Event{
		Kind:     realtime.EventThreadChanged,
		Scope:    realtime.ScopeThread,
		ThreadID: threadID,
	})
	s.notifyThreadChanged(thread.LectureID, threadID)
	return nil
}

// notifyThreadChanged is the downstream refresh signal every mutating
// call emits: lecture scope for the inbox list, teacher-global for the
// bell.
func (s *ThreadService) notifyThreadChanged(lectureID, threadID uint) {
	s.notifier.Publish(realtime.Event{
		Kind:      realtime.EventThreadChanged,
		Scope:     realtime.ScopeLecture,
		LectureID: lectureID,
		ThreadID:  threadID,
	})
	s.notifier.Publish(realtime.Event{
		Kind:      realtime.EventThreadChanged,
		Scope:     realtime.ScopeTeacherGlobal,
		LectureID: lectureID,
		ThreadID:  threadID,
	})
}

func mapDBErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(op)
	}
	return apperr.Storage(op, err)
}
