package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/models"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestThread creates a Q&A thread with default values
func (h *TestHelper) CreateTestThread(id uint, lectureID uint, studentID uint) *models.Thread {
	if id == 0 {
		id = 1
	}
	if lectureID == 0 {
		lectureID = 1
	}
	if studentID == 0 {
		studentID = 1
	}

	now := time.Now()
	return &models.Thread{
		ID:              id,
		LectureID:       lectureID,
		StudentID:       studentID,
		QuestionText:    "Test question",
		IsPublished:     false,
		IsReadByTeacher: false,
		IsReadByStudent: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CreateTestMessage creates a thread message with default values
func (h *TestHelper) CreateTestMessage(id uint, threadID uint, senderID uint, text string) *models.Message {
	if id == 0 {
		id = 1
	}
	if threadID == 0 {
		threadID = 1
	}
	if senderID == 0 {
		senderID = 1
	}
	if text == "" {
		text = "Test message"
	}

	now := time.Now()
	return &models.Message{
		ID:            id,
		ThreadID:      threadID,
		SenderID:      senderID,
		Text:          text,
		IsFromTeacher: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// GetRecordNotFoundError returns the not-found error repositories surface
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
