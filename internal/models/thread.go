package models

import (
	"time"
)

// ActorRole describes what a caller is allowed to do with a thread.
type ActorRole string

const (
	RoleMentor       ActorRole = "mentor"        // teacher or admin: full access to any thread
	RoleStudentOwner ActorRole = "student-owner" // the student who asked the question
	RoleOther        ActorRole = "other"         // no message access
)

// Actor is the resolved caller identity attached to each request.
type Actor struct {
	ID       uint
	IsMentor bool
}

// RoleFor resolves the actor's role for a specific thread.
func (a Actor) RoleFor(t *Thread) ActorRole {
	if a.IsMentor {
		return RoleMentor
	}
	if t != nil && t.StudentID == a.ID {
		return RoleStudentOwner
	}
	return RoleOther
}

// Thread is a single student question and its reply history.
// Exactly one owning student; visible to mentors plus the owner.
type Thread struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LectureID uint `gorm:"not null;index" json:"lecture_id"`
	StudentID uint `gorm:"not null;index" json:"student_id"`

	QuestionText   string  `gorm:"type:text;not null" json:"question_text"`
	OfficialAnswer *string `gorm:"type:text" json:"official_answer,omitempty"`
	IsPublished    bool    `gorm:"default:false" json:"is_published"`

	// Server-authoritative read flags, one per side of the conversation.
	IsReadByTeacher bool `gorm:"default:false" json:"is_read_by_teacher"`
	IsReadByStudent bool `gorm:"default:true" json:"is_read_by_student"`

	Messages []Message `gorm:"foreignKey:ThreadID" json:"messages,omitempty"`
}

// ServerReadFlag returns the authoritative read flag for the given role.
// RoleOther has no read state and always reads as true so it never
// contributes to unread counts.
func (t *Thread) ServerReadFlag(role ActorRole) bool {
	switch role {
	case RoleMentor:
		return t.IsReadByTeacher
	case RoleStudentOwner:
		return t.IsReadByStudent
	default:
		return true
	}
}

// LastActivity is the timestamp used for inbox ordering: the most recent
// message if any, otherwise thread creation.
func (t *Thread) LastActivity() time.Time {
	last := t.CreatedAt
	for i := range t.Messages {
		if t.Messages[i].CreatedAt.After(last) {
			last = t.Messages[i].CreatedAt
		}
	}
	return last
}

type ThreadResponse struct {
	ID              uint              `json:"id"`
	LectureID       uint              `json:"lecture_id"`
	StudentID       uint              `json:"student_id"`
	QuestionText    string            `json:"question_text"`
	OfficialAnswer  *string           `json:"official_answer,omitempty"`
	IsPublished     bool              `json:"is_published"`
	IsReadByTeacher bool              `json:"is_read_by_teacher"`
	IsReadByStudent bool              `json:"is_read_by_student"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	LastActivity    time.Time         `json:"last_activity"`
	Messages        []MessageResponse `json:"messages,omitempty"`
}

func (t *Thread) ToResponse() ThreadResponse {
	resp := ThreadResponse{
		ID:              t.ID,
		LectureID:       t.LectureID,
		StudentID:       t.StudentID,
		QuestionText:    t.QuestionText,
		OfficialAnswer:  t.OfficialAnswer,
		IsPublished:     t.IsPublished,
		IsReadByTeacher: t.IsReadByTeacher,
		IsReadByStudent: t.IsReadByStudent,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		LastActivity:    t.LastActivity(),
	}
	if len(t.Messages) > 0 {
		resp.Messages = make([]MessageResponse, len(t.Messages))
		for i := range t.Messages {
			resp.Messages[i] = t.Messages[i].ToResponse()
		}
	}
	return resp
}
