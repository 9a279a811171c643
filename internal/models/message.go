package models

import (
	"time"
)

// PhotoPlaceholder is stored as message text when a message carries only
// images. Clients use it to suppress duplicate rendering next to the
// attachment strip.
const PhotoPlaceholder = "photo"

// Message is one entry in a thread's append-only log. Edits change Text
// in place; deletes remove the row without renumbering siblings.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ThreadID uint `gorm:"not null;index" json:"thread_id"`
	SenderID uint `gorm:"not null;index" json:"sender_id"`

	Text          string `gorm:"type:text;not null" json:"text"`
	IsFromTeacher bool   `gorm:"default:false" json:"is_from_teacher"`

	// Raw attachment field. Legacy rows hold a single URL, newer rows a
	// JSON array. Decode with ParseImageURLs, never directly.
	Attachment string `gorm:"type:text" json:"-"`
}

type MessageResponse struct {
	ID            uint      `json:"id"`
	ThreadID      uint      `json:"thread_id"`
	SenderID      uint      `json:"sender_id"`
	Text          string    `json:"text"`
	IsFromTeacher bool      `json:"is_from_teacher"`
	ImageURLs     []string  `json:"image_urls"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (m *Message) ImageURLs() []string {
	return ParseImageURLs(m.Attachment)
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:            m.ID,
		ThreadID:      m.ThreadID,
		SenderID:      m.SenderID,
		Text:          m.Text,
		IsFromTeacher: m.IsFromTeacher,
		ImageURLs:     m.ImageURLs(),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
