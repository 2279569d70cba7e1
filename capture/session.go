package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/hazyhaar/webclip/geometry"
	"github.com/hazyhaar/webclip/idgen"
)

// Session is the record of one capture, from StartCapture to its end.
type Session struct {
	ID         string                 `json:"id"`
	State      State                  `json:"state"`
	Page       PageMeta               `json:"page"`
	Region     geometry.CaptureRegion `json:"region"`
	Slices     []Slice                `json:"-"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at,omitzero"`
	Err        error                  `json:"-"`
}

// Sessions is the registry of in-flight captures keyed by session ID.
type Sessions struct {
	mu     sync.Mutex
	m      map[string]*Session
	newID  idgen.Generator
	now    func() time.Time
	onDone func(Session)
}

// NewSessions creates an empty registry. A nil gen uses "cap_"-prefixed
// UUIDv7 IDs.
func NewSessions(gen idgen.Generator) *Sessions {
	if gen == nil {
		gen = idgen.Prefixed("cap_", idgen.Default)
	}
	return &Sessions{
		m:     make(map[string]*Session),
		newID: gen,
		now:   time.Now,
	}
}

// OnFinish registers fn to receive every session as it leaves the
// registry. It must be set before the registry is used.
func (s *Sessions) OnFinish(fn func(Session)) { s.onDone = fn }

// NewID returns a fresh session ID.
func (s *Sessions) NewID() string { return s.newID() }

// Create registers a session in the Capturing state.
func (s *Sessions) Create(id string, page PageMeta, region geometry.CaptureRegion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[id]; ok {
		return fmt.Errorf("capture: session %s already exists", id)
	}
	s.m[id] = &Session{
		ID:        id,
		State:     Capturing,
		Page:      page,
		Region:    region,
		StartedAt: s.now(),
	}
	return nil
}

// Get returns a snapshot of a live session.
func (s *Sessions) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Transition moves a session to next if the state graph allows it.
func (s *Sessions) Transition(id string, next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return fmt.Errorf("capture: unknown session %s", id)
	}
	if !sess.State.CanTransition(next) {
		return fmt.Errorf("capture: session %s: illegal transition %s -> %s", id, sess.State, next)
	}
	sess.State = next
	return nil
}

// Append adds the next slice. Slices must arrive in index order.
func (s *Sessions) Append(id string, slice Slice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return fmt.Errorf("capture: unknown session %s", id)
	}
	if slice.Index != len(sess.Slices) {
		return fmt.Errorf("capture: session %s: slice %d out of order, expected %d", id, slice.Index, len(sess.Slices))
	}
	sess.Slices = append(sess.Slices, slice)
	return nil
}

// Complete removes a session in the Done state and returns it.
func (s *Sessions) Complete(id string) (Session, error) {
	return s.finish(id, Done, nil)
}

// Fail removes a session in the Failed state. Its slices are dropped.
func (s *Sessions) Fail(id string, err error) (Session, error) {
	return s.finish(id, Failed, err)
}

func (s *Sessions) finish(id string, state State, cause error) (Session, error) {
	s.mu.Lock()
	sess, ok := s.m[id]
	if !ok {
		s.mu.Unlock()
		return Session{}, fmt.Errorf("capture: unknown session %s", id)
	}
	if !sess.State.CanTransition(state) {
		s.mu.Unlock()
		return Session{}, fmt.Errorf("capture: session %s: illegal transition %s -> %s", id, sess.State, state)
	}
	delete(s.m, id)
	sess.State = state
	sess.Err = cause
	sess.FinishedAt = s.now()
	if state == Failed {
		sess.Slices = nil
	}
	out := *sess
	onDone := s.onDone
	s.mu.Unlock()

	if onDone != nil {
		onDone(out)
	}
	return out, nil
}

// Sweep fails every session older than maxAge and returns their IDs.
func (s *Sessions) Sweep(maxAge time.Duration) []string {
	cutoff := s.now().Add(-maxAge)
	s.mu.Lock()
	var stale []string
	for id, sess := range s.m {
		if sess.StartedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	var swept []string
	for _, id := range stale {
		if _, err := s.Fail(id, aborted(fmt.Errorf("session older than %s", maxAge))); err == nil {
			swept = append(swept, id)
		}
	}
	return swept
}
