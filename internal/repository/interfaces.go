package repository

import (
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/models"
)

// ThreadRepositoryInterface defines the contract for thread repository operations
type ThreadRepositoryInterface interface {
	Create(thread *models.Thread) error
	FindByID(id uint) (*models.Thread, error)
	ListByLecture(lectureID uint) ([]models.Thread, error)
	ListForStudent(studentID uint) ([]models.Thread, error)
	ListAll() ([]models.Thread, error)
	UpdateQuestionText(id uint, text string) error
	SetPublished(id uint, published bool) error
	SetReadFlag(id uint, role models.ActorRole, read bool) error
	// MarkActivity bumps updated_at and resets the read flag of the side
	// that did not produce the activity.
	MarkActivity(id uint, fromTeacher bool, at time.Time) error
	Delete(id uint) error
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	ListByThread(threadID uint) ([]models.Message, error)
	UpdateText(id uint, text string) error
	Delete(id uint) error
}
