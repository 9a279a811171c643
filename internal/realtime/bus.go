package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/noteduco342/LectureQA-backend/internal/models"
)

// Scope identifies one of the three subscription granularities.
type Scope string

const (
	ScopeLecture       Scope = "lecture"  // thread-level changes within one lecture
	ScopeThread        Scope = "thread"   // message-level changes for an open thread
	ScopeTeacherGlobal Scope = "teachers" // cross-lecture changes, drives the bell
)

// EventKind says what changed.
type EventKind string

const (
	EventThreadChanged   EventKind = "thread_changed"
	EventMessageAppended EventKind = "message_appended"
	EventUnreadChanged   EventKind = "unread_changed"
)

// Event is the typed payload the bus moves around. Manual marks the
// synthetic local event emitted directly by an optimistic mark-as-read,
// as opposed to a push confirming it.
type Event struct {
	Kind      EventKind        `json:"kind"`
	Scope     Scope            `json:"scope"`
	LectureID uint             `json:"lecture_id,omitempty"`
	ThreadID  uint             `json:"thread_id,omitempty"`
	Role      models.ActorRole `json:"role,omitempty"`
	Manual    bool             `json:"manual,omitempty"`
}

// Config carries the bus timings. Zero values fall back to defaults.
type Config struct {
	// RefetchDelay is the gap before the second refresh of a two-phase
	// refetch, absorbing backing-store replication lag.
	RefetchDelay time.Duration
	// Cooldown suppresses poll-driven refresh after a manual optimistic
	// update so a stale snapshot cannot overwrite it.
	Cooldown time.Duration
	// PollInterval is the fallback refresh period bounding staleness if
	// the realtime channel silently drops.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.RefetchDelay <= 0 {
		c.RefetchDelay = 2 * time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 4 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Second
	}
	return c
}

// Subscription is a live handler registration. Unsubscribe tears down
// the transport channel and cancels any refetch timers still pending
// for this subscription.
type Subscription struct {
	bus    *Bus
	key    string
	id     uint64
	cancel CancelFunc
	once   sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.key, s.id)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

type handlerEntry struct {
	id uint64
	fn func(Event)
}

// manualKey identifies one conceptual mark-as-read: a thread read by one
// side. The other side's marks are independent and must not be conflated.
type manualKey struct {
	threadID uint
	role     models.ActorRole
}

// Bus is the realtime event bus: it fans external push notifications out
// to local handlers with a two-phase refetch, carries the synthetic
// unread-changed events of optimistic updates, dedupes the two views of
// a single mark-as-read, and owns the poll fallback.
type Bus struct {
	cfg       Config
	scheduler Scheduler
	transport Transport
	clock     func() time.Time

	mu           sync.Mutex
	handlers     map[string][]handlerEntry
	nextID       uint64
	processedIDs map[manualKey]struct{} // conceptual marks already applied; cleared on new activity
	lastManual   time.Time
	pending      map[uint64]CancelFunc // outstanding refetch timers by handler id
	polls        []CancelFunc
	closed       bool
}

func NewBus(cfg Config, scheduler Scheduler, transport Transport) *Bus {
	if scheduler == nil {
		scheduler = NewTimerScheduler()
	}
	return &Bus{
		cfg:          cfg.withDefaults(),
		scheduler:    scheduler,
		transport:    transport,
		clock:        time.Now,
		handlers:     make(map[string][]handlerEntry),
		processedIDs: make(map[manualKey]struct{}),
		pending:      make(map[uint64]CancelFunc),
	}
}

// SetClock replaces the time source. Tests only.
func (b *Bus) SetClock(clock func() time.Time) { b.clock = clock }

func lectureChannel(lectureID uint) string { return fmt.Sprintf("qa:lecture:%d", lectureID) }
func threadChannel(threadID uint) string   { return fmt.Sprintf("qa:thread:%d", threadID) }
func teacherChannel() string               { return "qa:teachers" }

// SubscribeLecture registers for thread-level changes within a lecture.
func (b *Bus) SubscribeLecture(lectureID uint, fn func(Event)) *Subscription {
	return b.subscribe(lectureChannel(lectureID), fn)
}

// SubscribeThread registers for message-level changes on an open thread.
func (b *Bus) SubscribeThread(threadID uint, fn func(Event)) *Subscription {
	return b.subscribe(threadChannel(threadID), fn)
}

// SubscribeTeacherGlobal registers for cross-lecture changes.
func (b *Bus) SubscribeTeacherGlobal(fn func(Event)) *Subscription {
	return b.subscribe(teacherChannel(), fn)
}

func (b *Bus) subscribe(channel string, fn func(Event)) *Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[channel] = append(b.handlers[channel], handlerEntry{id: id, fn: fn})
	b.mu.Unlock()

	sub := &Subscription{bus: b, key: channel, id: id}
	if b.transport != nil {
		cancel, err := b.transport.Subscribe(channel, func(payload []byte) {
			var ev Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				log.Printf("Dropping malformed event on %s: %v", channel, err)
				return
			}
			b.dispatchPush(channel, id, ev)
		})
		if err != nil {
			log.Printf("Transport subscribe failed on %s, falling back to poll: %v", channel, err)
		} else {
			sub.cancel = cancel
		}
	}
	return sub
}

func (b *Bus) remove(channel string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.handlers[channel]
	for i := range entries {
		if entries[i].id == id {
			b.handlers[channel] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if cancel, ok := b.pending[id]; ok {
		cancel()
		delete(b.pending, id)
	}
}

// Publish delivers an event to local subscribers of its channel and, if a
// transport is attached, to other processes. Local delivery is immediate
// and single-phase: the caller just mutated authoritative state, so there
// is no replication lag to absorb.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	b.clearManualLocked(ev)
	b.mu.Unlock()

	channel := b.channelFor(ev)
	b.dispatchLocal(channel, ev)
	if b.transport != nil {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Printf("Error marshaling event: %v", err)
			return
		}
		if err := b.transport.Publish(channel, payload); err != nil {
			log.Printf("Error publishing event to %s: %v", channel, err)
		}
	}
}

func (b *Bus) channelFor(ev Event) string {
	switch ev.Scope {
	case ScopeThread:
		return threadChannel(ev.ThreadID)
	case ScopeTeacherGlobal:
		return teacherChannel()
	default:
		return lectureChannel(ev.LectureID)
	}
}

// NotifyManualRead emits the synthetic unread-changed event for an
// optimistic mark-as-read, at most once per thread per session. The
// matching realtime push is deduped through the same processedIDs set,
// so one conceptual mark-as-read never double-applies to the aggregate.
// The guard is per thread AND side, and new activity on the thread
// clears it, so a later legitimate re-mark emits again. Returns false if
// this exact mark was already applied.
func (b *Bus) NotifyManualRead(lectureID, threadID uint, role models.ActorRole) bool {
	key := manualKey{threadID: threadID, role: role}
	b.mu.Lock()
	if _, done := b.processedIDs[key]; done {
		b.mu.Unlock()
		return false
	}
	b.processedIDs[key] = struct{}{}
	b.lastManual = b.clock()
	b.mu.Unlock()

	ev := Event{
		Kind:      EventUnreadChanged,
		Scope:     ScopeLecture,
		LectureID: lectureID,
		ThreadID:  threadID,
		Role:      role,
		Manual:    true,
	}
	b.dispatchLocal(b.channelFor(ev), ev)
	b.dispatchLocal(teacherChannel(), ev)
	return true
}

// ManualReadApplied reports whether this side's manual mark-as-read for
// the thread was already dispatched and not since retired by new
// activity. Push handlers consult this before applying an unread-changed
// event as a count delta.
func (b *Bus) ManualReadApplied(threadID uint, role models.ActorRole) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.processedIDs[manualKey{threadID: threadID, role: role}]
	return ok
}

// clearManualLocked retires the dedupe guard for a thread when an event
// signals new content. The next mark-as-read on the thread is a new
// conceptual mark and must emit its own synthetic event. Caller holds mu.
func (b *Bus) clearManualLocked(ev Event) {
	if ev.ThreadID == 0 {
		return
	}
	if ev.Kind != EventMessageAppended && ev.Kind != EventThreadChanged {
		return
	}
	delete(b.processedIDs, manualKey{threadID: ev.ThreadID, role: models.RoleMentor})
	delete(b.processedIDs, manualKey{threadID: ev.ThreadID, role: models.RoleStudentOwner})
}

// NoteOptimistic opens the post-optimistic cooldown window without
// emitting anything. Used by writes that are optimistic but not
// mark-as-read (e.g. local message append).
func (b *Bus) NoteOptimistic() {
	b.mu.Lock()
	b.lastManual = b.clock()
	b.mu.Unlock()
}

// InCooldown reports whether a manual optimistic update happened
// recently enough that poll-driven refresh must stay quiet.
func (b *Bus) InCooldown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastManual.IsZero() {
		return false
	}
	return b.clock().Sub(b.lastManual) < b.cfg.Cooldown
}

// StartPoll runs fn every PollInterval as the fallback refresh, skipping
// ticks inside the cooldown window. The returned cancel stops it.
func (b *Bus) StartPoll(fn func()) CancelFunc {
	cancel := b.scheduler.Every(b.cfg.PollInterval, func() {
		if b.InCooldown() {
			return
		}
		fn()
	})
	b.mu.Lock()
	b.polls = append(b.polls, cancel)
	b.mu.Unlock()
	return cancel
}

// dispatchPush handles an inbound transport event for one subscription:
// an immediate refresh plus a delayed second pass, because the push
// payload is treated as a hint and the backing store may not have
// converged yet.
func (b *Bus) dispatchPush(channel string, id uint64, ev Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.clearManualLocked(ev)
	var fn func(Event)
	for _, entry := range b.handlers[channel] {
		if entry.id == id {
			fn = entry.fn
			break
		}
	}
	b.mu.Unlock()
	if fn == nil {
		return
	}

	fn(ev)

	second := b.scheduler.After(b.cfg.RefetchDelay, func() {
		b.mu.Lock()
		delete(b.pending, id)
		alive := false
		if !b.closed {
			for _, entry := range b.handlers[channel] {
				if entry.id == id {
					alive = true
					break
				}
			}
		}
		b.mu.Unlock()
		if alive {
			fn(ev)
		}
	})
	b.mu.Lock()
	if prev, ok := b.pending[id]; ok {
		prev()
	}
	b.pending[id] = second
	b.mu.Unlock()
}

func (b *Bus) dispatchLocal(channel string, ev Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	entries := make([]handlerEntry, len(b.handlers[channel]))
	copy(entries, b.handlers[channel])
	b.mu.Unlock()

	for _, entry := range entries {
		entry.fn(ev)
	}
}

// Close cancels every poll and pending refetch and drops all handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	polls := b.polls
	b.polls = nil
	pending := b.pending
	b.pending = make(map[uint64]CancelFunc)
	b.handlers = make(map[string][]handlerEntry)
	b.mu.Unlock()

	for _, cancel := range polls {
		cancel()
	}
	for _, cancel := range pending {
		cancel()
	}
}
