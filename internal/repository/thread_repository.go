package repository

import (
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/models"
	"gorm.io/gorm"
)

type ThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

func (r *ThreadRepository) Create(thread *models.Thread) error {
	return r.db.Create(thread).Error
}

func (r *ThreadRepository) FindByID(id uint) (*models.Thread, error) {
	var thread models.Thread
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).First(&thread, id).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *ThreadRepository) ListByLecture(lectureID uint) ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Where("lecture_id = ?", lectureID).Find(&threads).Error
	return threads, err
}

func (r *ThreadRepository) ListForStudent(studentID uint) ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Where("student_id = ?", studentID).Find(&threads).Error
	return threads, err
}

func (r *ThreadRepository) ListAll() ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Find(&threads).Error
	return threads, err
}

func (r *ThreadRepository) UpdateQuestionText(id uint, text string) error {
	return r.update(id, map[string]interface{}{
		"question_text": text,
		"updated_at":    gorm.Expr("NOW()"),
	})
}

func (r *ThreadRepository) SetPublished(id uint, published bool) error {
	// UpdateColumn skips the updated_at hook: publishing is moderation,
	// not thread activity, and must not invalidate newer read overrides.
	res := r.db.Model(&models.Thread{}).Where("id = ?", id).
		UpdateColumn("is_published", published)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ThreadRepository) SetReadFlag(id uint, role models.ActorRole, read bool) error {
	var column string
	switch role {
	case models.RoleMentor:
		column = "is_read_by_teacher"
	case models.RoleStudentOwner:
		column = "is_read_by_student"
	default:
		return nil
	}
	// Deliberately does not bump updated_at: marking read is not thread
	// activity and must not invalidate newer read overrides.
	return r.db.Model(&models.Thread{}).Where("id = ?", id).
		UpdateColumn(column, read).Error
}

func (r *ThreadRepository) MarkActivity(id uint, fromTeacher bool, at time.Time) error {
	updates := map[string]interface{}{
		"updated_at": at,
	}
	if fromTeacher {
		updates["is_read_by_teacher"] = true
		updates["is_read_by_student"] = false
	} else {
		updates["is_read_by_student"] = true
		updates["is_read_by_teacher"] = false
	}
	return r.update(id, updates)
}

func (r *ThreadRepository) Delete(id uint) error {
	// Cascade to messages in one transaction.
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Thread{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *ThreadRepository) update(id uint, updates map[string]interface{}) error {
	res := r.db.Model(&models.Thread{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
