package models

import (
	"reflect"
	"testing"
	"time"
)

func TestParseImageURLs(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"Empty string", "", []string{}},
		{"Whitespace only", "   ", []string{}},
		{"Single legacy URL", "http://a", []string{"http://a"}},
		{"JSON array", `["a","b"]`, []string{"a", "b"}},
		{"JSON array preserves order", `["u2","u1","u3"]`, []string{"u2", "u1", "u3"}},
		{"Empty JSON array", `[]`, []string{}},
		{"Malformed JSON falls back to raw", "[not json", []string{"[not json"}},
		{"JSON null array falls through", `[null]`, []string{"[null]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseImageURLs(tt.raw)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ParseImageURLs(%q) = %v, want %v", tt.raw, result, tt.expected)
			}
		})
	}
}

func TestEncodeImageURLsRoundTrip(t *testing.T) {
	urls := []string{"u1", "u2"}
	raw := EncodeImageURLs(urls)
	decoded := ParseImageURLs(raw)
	if !reflect.DeepEqual(decoded, urls) {
		t.Errorf("round trip = %v, want %v", decoded, urls)
	}

	if EncodeImageURLs(nil) != "" {
		t.Errorf("EncodeImageURLs(nil) = %q, want empty string", EncodeImageURLs(nil))
	}
}

func TestThreadLastActivity(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	thread := &Thread{ID: 1, CreatedAt: created}

	if got := thread.LastActivity(); !got.Equal(created) {
		t.Errorf("LastActivity with no messages = %v, want %v", got, created)
	}

	thread.Messages = []Message{
		{ID: 1, ThreadID: 1, CreatedAt: created.Add(5 * time.Minute)},
		{ID: 2, ThreadID: 1, CreatedAt: created.Add(2 * time.Minute)},
	}
	want := created.Add(5 * time.Minute)
	if got := thread.LastActivity(); !got.Equal(want) {
		t.Errorf("LastActivity = %v, want %v", got, want)
	}
}

func TestActorRoleFor(t *testing.T) {
	thread := &Thread{ID: 1, StudentID: 7}

	tests := []struct {
		name     string
		actor    Actor
		expected ActorRole
	}{
		{"Mentor", Actor{ID: 3, IsMentor: true}, RoleMentor},
		{"Owning student", Actor{ID: 7}, RoleStudentOwner},
		{"Other student", Actor{ID: 8}, RoleOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.actor.RoleFor(thread); got != tt.expected {
				t.Errorf("RoleFor = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEffectiveRead(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	thread := &Thread{ID: 1, StudentID: 7, UpdatedAt: updated}

	tests := []struct {
		name       string
		serverFlag bool
		overrides  OverrideSet
		expected   bool
	}{
		{"Server flag set", true, nil, true},
		{"No flag no override", false, OverrideSet{}, false},
		{"Override at updatedAt", false, OverrideSet{1: updated}, true},
		{"Override after updatedAt", false, OverrideSet{1: updated.Add(time.Second)}, true},
		{"Stale override", false, OverrideSet{1: updated.Add(-time.Second)}, false},
		{"Override for other thread", false, OverrideSet{2: updated.Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thread.IsReadByTeacher = tt.serverFlag
			if got := EffectiveRead(thread, RoleMentor, tt.overrides); got != tt.expected {
				t.Errorf("EffectiveRead = %v, want %v", got, tt.expected)
			}
		})
	}

	// RoleOther never counts as unread.
	thread.IsReadByTeacher = false
	if !EffectiveRead(thread, RoleOther, nil) {
		t.Errorf("EffectiveRead for RoleOther = false, want true")
	}
}

func TestMessageToResponse(t *testing.T) {
	createdAt := time.Now()
	message := &Message{
		ID:            1,
		ThreadID:      2,
		SenderID:      3,
		Text:          PhotoPlaceholder,
		IsFromTeacher: true,
		Attachment:    `["u1","u2"]`,
		CreatedAt:     createdAt,
	}

	response := message.ToResponse()

	if response.ID != message.ID {
		t.Errorf("ToResponse ID = %d, want %d", response.ID, message.ID)
	}
	if response.ThreadID != message.ThreadID {
		t.Errorf("ToResponse ThreadID = %d, want %d", response.ThreadID, message.ThreadID)
	}
	if response.Text != message.Text {
		t.Errorf("ToResponse Text = %q, want %q", response.Text, message.Text)
	}
	if !response.IsFromTeacher {
		t.Errorf("ToResponse IsFromTeacher = false, want true")
	}
	if !reflect.DeepEqual(response.ImageURLs, []string{"u1", "u2"}) {
		t.Errorf("ToResponse ImageURLs = %v, want [u1 u2]", response.ImageURLs)
	}
}
