package service

import (
	"context"
	"strings"
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/apperr"
	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/noteduco342/LectureQA-backend/internal/realtime"
	"github.com/noteduco342/LectureQA-backend/internal/repository"
)

// MessagePolicy holds edit/delete rules that are product decisions, not
// invariants. Student editing is off in the current product but kept as
// a flag pending clarification.
type MessagePolicy struct {
	AllowStudentEdit bool
}

type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	threadRepo  repository.ThreadRepositoryInterface
	uploader    Uploader
	notifier    ChangeNotifier
	policy      MessagePolicy
	clock       func() time.Time
}

func NewMessageService(messageRepo repository.MessageRepositoryInterface, threadRepo repository.ThreadRepositoryInterface, uploader Uploader, notifier ChangeNotifier, policy MessagePolicy) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		threadRepo:  threadRepo,
		uploader:    uploader,
		notifier:    notifier,
		policy:      policy,
		clock:       time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (s *MessageService) SetClock(clock func() time.Time) { s.clock = clock }

// SendMessage uploads any attached images and appends the message. An
// upload failure aborts before anything is written, so the composed text
// stays with the caller for retry.
func (s *MessageService) SendMessage(ctx context.Context, actor models.Actor, threadID uint, text string, images [][]byte) (*models.Message, error) {
	imageURLs := make([]string, 0, len(images))
	for _, img := range images {
		if s.uploader == nil {
			return nil, apperr.Upload("send message", ErrAttachmentsUnavailable)
		}
		url, err := s.uploader.UploadImage(ctx, img)
		if err != nil {
			return nil, apperr.Upload("send message", err)
		}
		imageURLs = append(imageURLs, url)
	}
	return s.Append(actor, threadID, text, imageURLs)
}

// Append adds a message to a thread's log. An empty text is allowed only
// for image-only messages and is stored as the placeholder marker.
func (s *MessageService) Append(actor models.Actor, threadID uint, text string, imageURLs []string) (*models.Message, error) {
	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return nil, mapDBErr("append message", err)
	}
	role := actor.RoleFor(thread)
	if role == models.RoleOther {
		return nil, apperr.PermissionDenied("append message")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		if len(imageURLs) == 0 {
			return nil, ErrEmptyMessage
		}
		text = models.PhotoPlaceholder
	}

	now := s.clock()
	message := &models.Message{
		ThreadID:      threadID,
		SenderID:      actor.ID,
		Text:          text,
		IsFromTeacher: actor.IsMentor,
		Attachment:    models.EncodeImageURLs(imageURLs),
		CreatedAt:     now,
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, apperr.Storage("append message", err)
	}

	// New activity bumps updated_at and flips the other side to unread.
	if err := s.threadRepo.MarkActivity(threadID, actor.IsMentor, now); err != nil {
		return nil, apperr.Storage("append message", err)
	}

	// The sender's UI already shows the message; open the cooldown so a
	// poll tick cannot overwrite it with a not-yet-converged snapshot.
	s.notifier.NoteOptimistic()

	s.notifier.Publish(realtime.Event{
		Kind:     realtime.EventMessageAppended,
		Scope:    realtime.ScopeThread,
		ThreadID: threadID,
	})
	s.notifyThreadChanged(thread.LectureID, threadID)
	return message, nil
}

// List returns a thread's messages ascending by creation time. Actors
// outside the conversation get nothing.
func (s *MessageService) List(actor models.Actor, threadID uint) ([]models.Message, error) {
	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return nil, mapDBErr("list messages", err)
	}
	if actor.RoleFor(thread) == models.RoleOther {
		return nil, apperr.PermissionDenied("list messages")
	}
	messages, err := s.messageRepo.ListByThread(threadID)
	if err != nil {
		return nil, apperr.Storage("list messages", err)
	}
	return messages, nil
}

func (s *MessageService) Edit(actor models.Actor, messageID uint, text string) error {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return mapDBErr("edit message", err)
	}
	if !s.canModify(actor, message) {
		return apperr.PermissionDenied("edit message")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if err := s.messageRepo.UpdateText(messageID, text); err != nil {
		return mapDBErr("edit message", err)
	}
	s.notifyMessageThread(message.ThreadID)
	return nil
}

// Delete removes a single message. Siblings keep their order and ids.
func (s *MessageService) Delete(actor models.Actor, messageID uint) error {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return mapDBErr("delete message", err)
	}
	if !s.canModify(actor, message) {
		return apperr.PermissionDenied("delete message")
	}
	if err := s.messageRepo.Delete(messageID); err != nil {
		return mapDBErr("delete message", err)
	}
	s.notifyMessageThread(message.ThreadID)
	return nil
}

func (s *MessageService) canModify(actor models.Actor, message *models.Message) bool {
	if actor.IsMentor {
		return true
	}
	return s.policy.AllowStudentEdit && message.SenderID == actor.ID
}

func (s *MessageService) notifyMessageThread(threadID uint) {
	thread, err := s.threadRepo.FindByID(threadID)
	if err != nil {
		return
	}
	s.notifier.Publish(realtime.Event{
		Kind:     realtime.EventMessageAppended,
		Scope:    realtime.ScopeThread,
		ThreadID: threadID,
	})
	s.notifyThreadChanged(thread.LectureID, threadID)
}

func (s *MessageService) notifyThreadChanged(lectureID, threadID uint) {
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
