package service

import (
	"context"
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/noteduco342/LectureQA-backend/internal/realtime"
)

// ChangeNotifier is the slice of the realtime bus the services publish
// through. Injected so reconciliation logic is testable without Redis.
type ChangeNotifier interface {
	Publish(ev realtime.Event)
	NotifyManualRead(lectureID, threadID uint, role models.ActorRole) bool
	NoteOptimistic()
}

// OverrideStore persists read overrides across process restarts.
type OverrideStore interface {
	Load(actorID uint, role models.ActorRole) (models.OverrideSet, error)
	Save(actorID uint, role models.ActorRole, threadID uint, readAt time.Time) error
}

// Uploader stores attachment bytes and returns a stable URL.
type Uploader interface {
	UploadImage(ctx context.Context, data []byte) (string, error)
}
