package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/models"
	"github.com/noteduco342/LectureQA-backend/internal/realtime"
	"gorm.io/gorm"
)

// MockThreadRepository is an in-memory ThreadRepositoryInterface for testing
type MockThreadRepository struct {
	mu      sync.Mutex
	threads map[uint]*models.Thread
	nextID  uint

	// FailSetReadFlag simulates the backing store dropping the read-flag
	// write (permission denial, network loss).
	FailSetReadFlag  bool
	SetReadFlagCalls int
}

func NewMockThreadRepository() *MockThreadRepository {
	return &MockThreadRepository{threads: make(map[uint]*models.Thread), nextID: 1}
}

func (m *MockThreadRepository) Create(thread *models.Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if thread.ID == 0 {
		thread.ID = m.nextID
		m.nextID++
	}
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now()
	}
	if thread.UpdatedAt.IsZero() {
		thread.UpdatedAt = thread.CreatedAt
	}
	copied := *thread
	m.threads[thread.ID] = &copied
	return nil
}

func (m *MockThreadRepository) FindByID(id uint) (*models.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread, ok := m.threads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *thread
	copied.Messages = append([]models.Message{}, thread.Messages...)
	return &copied, nil
}

func (m *MockThreadRepository) ListByLecture(lectureID uint) ([]models.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Thread
	for _, thread := range m.threads {
		if thread.LectureID == lectureID {
			result = append(result, *thread)
		}
	}
	sortByID(result)
	return result, nil
}

func (m *MockThreadRepository) ListForStudent(studentID uint) ([]models.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Thread
	for _, thread := range m.threads {
		if thread.StudentID == studentID {
			result = append(result, *thread)
		}
	}
	sortByID(result)
	return result, nil
}

func (m *MockThreadRepository) ListAll() ([]models.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Thread
	for _, thread := range m.threads {
		result = append(result, *thread)
	}
	sortByID(result)
	return result, nil
}

func (m *MockThreadRepository) UpdateQuestionText(id uint, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread, ok := m.threads[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	thread.QuestionText = text
	thread.UpdatedAt = time.Now()
	return nil
}

func (m *MockThreadRepository) SetPublished(id uint, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread, ok := m.threads[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	thread.IsPublished = published
	return nil
}

func (m *MockThreadRepository) SetReadFlag(id uint, role models.ActorRole, read bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetReadFlagCalls++
	if m.FailSetReadFlag {
		return errors.New("permission denied by backing store")
	}
	thread, ok := m.threads[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	switch role {
	case models.RoleMentor:
		thread.IsReadByTeacher = read
	case models.RoleStudentOwner:
		thread.IsReadByStudent = read
	}
	return nil
}

func (m *MockThreadRepository) MarkActivity(id uint, fromTeacher bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread, ok := m.threads[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	thread.UpdatedAt = at
	if fromTeacher {
		thread.IsReadByTeacher = true
		thread.IsReadByStudent = false
	} else {
		thread.IsReadByStudent = true
		thread.IsReadByTeacher = false
	}
	return nil
}

func (m *MockThreadRepository) Delete(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.threads[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.threads, id)
	return nil
}

// AttachMessage appends a message to the stored thread so LastActivity
// and Preload-style listing behave like the real repository.
func (m *MockThreadRepository) AttachMessage(message models.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if thread, ok := m.threads[message.ThreadID]; ok {
		thread.Messages = append(thread.Messages, message)
	}
}

func sortByID(threads []models.Thread) {
	sort.Slice(threads, func(i, j int) bool { return threads[i].ID < threads[j].ID })
}

// MockMessageRepository is an in-memory MessageRepositoryInterface for testing
type MockMessageRepository struct {
	mu       sync.Mutex
	messages map[uint]*models.Message
	nextID   uint
	threads  *MockThreadRepository
}

func NewMockMessageRepository(threads *MockThreadRepository) *MockMessageRepository {
	return &MockMessageRepository{messages: make(map[uint]*models.Message), nextID: 1, threads: threads}
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	m.mu.Lock()
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	copied := *message
	m.messages[message.ID] = &copied
	m.mu.Unlock()
	if m.threads != nil {
		m.threads.AttachMessage(copied)
	}
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	message, ok := m.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *message
	return &copied, nil
}

func (m *MockMessageRepository) ListByThread(threadID uint) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Message
	for _, message := range m.messages {
		if message.ThreadID == threadID {
			result = append(result, *message)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockMessageRepository) UpdateText(id uint, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	message, ok := m.messages[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	message.Text = text
	return nil
}

func (m *MockMessageRepository) Delete(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.messages, id)
	return nil
}

// MockOverrideStore is an in-memory OverrideStore. Contents survive
// "reload" because tests share one store across service instances.
type MockOverrideStore struct {
	mu   sync.Mutex
	data map[string]models.OverrideSet

	FailSave bool
}

func NewMockOverrideStore() *MockOverrideStore {
	return &MockOverrideStore{data: make(map[string]models.OverrideSet)}
}

func (m *MockOverrideStore) Load(actorID uint, role models.ActorRole) (models.OverrideSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := models.OverrideSet{}
	for id, at := range m.data[actorKey(actorID, role)] {
		set[id] = at
	}
	return set, nil
}

func (m *MockOverrideStore) Save(actorID uint, role models.ActorRole, threadID uint, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave {
		return errors.New("local storage unavailable")
	}
	key := actorKey(actorID, role)
	if m.data[key] == nil {
		m.data[key] = models.OverrideSet{}
	}
	m.data[key][threadID] = readAt
	return nil
}

// RecordingNotifier captures bus traffic without a real bus. Its dedupe
// mirrors realtime.Bus: per thread per side, retired by new activity.
type RecordingNotifier struct {
	mu              sync.Mutex
	Events          []realtime.Event
	ManualReads     []uint
	OptimisticNotes int
	processed       map[manualPair]struct{}
}

type manualPair struct {
	threadID uint
	role     models.ActorRole
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{processed: make(map[manualPair]struct{})}
}

func (n *RecordingNotifier) Publish(ev realtime.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ev.ThreadID != 0 && (ev.Kind == realtime.EventMessageAppended || ev.Kind == realtime.EventThreadChanged) {
		delete(n.processed, manualPair{ev.ThreadID, models.RoleMentor})
		delete(n.processed, manualPair{ev.ThreadID, models.RoleStudentOwner})
	}
	n.Events = append(n.Events, ev)
}

func (n *RecordingNotifier) NotifyManualRead(lectureID, threadID uint, role models.ActorRole) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := manualPair{threadID, role}
	if _, done := n.processed[key]; done {
		return false
	}
	n.processed[key] = struct{}{}
	n.ManualReads = append(n.ManualReads, threadID)
	return true
}

func (n *RecordingNotifier) NoteOptimistic() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.OptimisticNotes++
}

func (n *RecordingNotifier) EventCount(kind realtime.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, ev := range n.Events {
		if ev.Kind == kind {
			count++
		}
	}
	return count
}

// MockUnreadCache is an in-memory UnreadCountCache that counts
// invalidations.
type MockUnreadCache struct {
	mu            sync.Mutex
	lecture       map[string]int
	global        map[string]int
	Invalidations int
}

func NewMockUnreadCache() *MockUnreadCache {
	return &MockUnreadCache{lecture: make(map[string]int), global: make(map[string]int)}
}

func lectureCacheKey(actorID uint, role models.ActorRole, lectureID uint) string {
	return fmt.Sprintf("%s:%d:%d", role, actorID, lectureID)
}

func (c *MockUnreadCache) GetLectureCount(actorID uint, role models.ActorRole, lectureID uint) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	count, ok := c.lecture[lectureCacheKey(actorID, role, lectureID)]
	return count, ok
}

func (c *MockUnreadCache) SetLectureCount(actorID uint, role models.ActorRole, lectureID uint, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lecture[lectureCacheKey(actorID, role, lectureID)] = count
	return nil
}

func (c *MockUnreadCache) GetGlobalCount(actorID uint, role models.ActorRole) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	count, ok := c.global[actorKey(actorID, role)]
	return count, ok
}

func (c *MockUnreadCache) SetGlobalCount(actorID uint, role models.ActorRole, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global[actorKey(actorID, role)] = count
	return nil
}

func (c *MockUnreadCache) InvalidateAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lecture = make(map[string]int)
	c.global = make(map[string]int)
	c.Invalidations++
	return nil
}

// MockUploader returns deterministic URLs, or fails on demand.
type MockUploader struct {
	FailUpload bool
	uploads    int
}

func (u *MockUploader) UploadImage(ctx context.Context, data []byte) (string, error) {
	if u.FailUpload {
		return "", errors.New("object storage unreachable")
	}
	u.uploads++
	return fmt.Sprintf("https://cdn.example.com/qa/%d.jpg", u.uploads), nil
}
