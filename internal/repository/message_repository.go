package repository

import (
	"github.com/noteduco342/LectureQA-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) ListByThread(threadID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// UpdateText edits a message body in place. created_at is untouched so
// log order is preserved.
func (r *MessageRepository) UpdateText(id uint, text string) error {
	res := r.db.Model(&models.Message{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"text":       text,
			"updated_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *MessageRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Message{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
