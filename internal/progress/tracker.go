// Package progress records what each learner did in each lesson.
package progress

import (
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnknownSession is returned when a user has no session yet.
var ErrUnknownSession = errors.New("unknown session")

// Status of a lesson for one user.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
)

// LessonProgress tracks one lesson attempt.
type LessonProgress struct {
	LessonID          string    `yaml:"lesson_id"`
	Status            Status    `yaml:"status"`
	StartTime         time.Time `yaml:"start_time"`
	EndTime           time.Time `yaml:"end_time,omitempty"`
	IncorrectFormulas []string  `yaml:"incorrect_formulas,omitempty"`
}

// Session is everything recorded for one user.
type Session struct {
	UserID      string                     `yaml:"user_id"`
	FirstActive time.Time                  `yaml:"first_active"`
	LastActive  time.Time                  `yaml:"last_active"`
	Progress    map[string]*LessonProgress `yaml:"progress"`
}

func (s *Session) clone() Session {
	out := *s
	out.Progress = make(map[string]*LessonProgress, len(s.Progress))
	for id, p := range s.Progress {
		cp := *p
		cp.IncorrectFormulas = slices.Clone(p.IncorrectFormulas)
		out.Progress[id] = &cp
	}
	return out
}

// Tracker keeps sessions in memory, persists them to an optional Store
// and broadcasts a snapshot to subscribers after every change. It is safe
// for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    Store
	now      func() time.Time
	subs     map[int]chan map[string]Session
	nextSub  int
}

// NewTracker loads the sessions held by store. A nil store keeps
// everything in memory.
func NewTracker(store Store) (*Tracker, error) {
	t := &Tracker{
		sessions: map[string]*Session{},
		store:    store,
		now:      time.Now,
		subs:     map[int]chan map[string]Session{},
	}
	if store != nil {
		sessions, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("error loading sessions: %w", err)
		}
		if sessions != nil {
			t.sessions = sessions
		}
	}
	return t, nil
}

// Visit starts (or restarts) lesson for user, creating the session on
// first use. The lesson's previous attempt is discarded.
func (t *Tracker) Visit(user, lesson string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	s, ok := t.sessions[user]
	if !ok {
		s = &Session{UserID: user, FirstActive: now, Progress: map[string]*LessonProgress{}}
		t.sessions[user] = s
	}
	s.LastActive = now
	s.Progress[lesson] = &LessonProgress{LessonID: lesson, Status: StatusPending, StartTime: now}
	log.Info().Str("user", user).Str("lesson", lesson).Msg("visit")
	return t.changed()
}

// Incorrect records a wrong formula once per lesson.
func (t *Tracker) Incorrect(user, lesson, formula string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.lesson(user, lesson)
	if err != nil {
		return err
	}
	if slices.Contains(p.IncorrectFormulas, formula) {
		return nil
	}
	p.IncorrectFormulas = append(p.IncorrectFormulas, formula)
	log.Debug().Str("user", user).Str("lesson", lesson).Str("formula", formula).Msg("incorrect formula")
	return t.changed()
}

// Success marks lesson done. The first completion time is kept.
func (t *Tracker) Success(user, lesson string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.lesson(user, lesson)
	if err != nil {
		return err
	}
	if p.Status == StatusSuccess {
		return nil
	}
	p.Status = StatusSuccess
	p.EndTime = t.sessions[user].LastActive
	log.Info().Str("user", user).Str("lesson", lesson).Dur("elapsed", p.EndTime.Sub(p.StartTime)).Msg("lesson solved")
	return t.changed()
}

// Delete removes a user's session.
func (t *Tracker) Delete(user string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[user]; !ok {
		return fmt.Errorf("%s: %w", user, ErrUnknownSession)
	}
	delete(t.sessions, user)
	log.Info().Str("user", user).Msg("session deleted")
	return t.changed()
}

// Sessions returns a deep copy of every session keyed by user id.
func (t *Tracker) Sessions() map[string]Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// Subscribe returns a channel that receives a snapshot after each change,
// and a cancel func that closes it. A subscriber that has not consumed
// the previous snapshot misses the next one.
func (t *Tracker) Subscribe() (<-chan map[string]Session, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	ch := make(chan map[string]Session, 1)
	t.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}

// lesson returns the progress entry, creating it inside an existing
// session. Callers hold t.mu.
func (t *Tracker) lesson(user, lesson string) (*LessonProgress, error) {
	s, ok := t.sessions[user]
	if !ok {
		return nil, fmt.Errorf("%s: %w", user, ErrUnknownSession)
	}
	s.LastActive = t.now()
	p, ok := s.Progress[lesson]
	if !ok {
		p = &LessonProgress{LessonID: lesson, Status: StatusPending, StartTime: s.LastActive}
		s.Progress[lesson] = p
	}
	return p, nil
}

func (t *Tracker) snapshot() map[string]Session {
	out := make(map[string]Session, len(t.sessions))
	for id, s := range t.sessions {
		out[id] = s.clone()
	}
	return out
}

// changed persists and broadcasts. Callers hold t.mu.
func (t *Tracker) changed() error {
	for _, id := range slices.Sorted(maps.Keys(t.subs)) {
		select {
		case t.subs[id] <- t.snapshot():
		default:
		}
	}
	if t.store == nil {
		return nil
	}
	if err := t.store.Save(t.sessions); err != nil {
		log.Error().Err(err).Msg("saving sessions")
		return fmt.Errorf("error saving sessions: %w", err)
	}
	return nil
}

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateUserID returns a short random id of three base-36 characters.
func GenerateUserID() string {
	var b strings.Builder
	for range 3 {
		b.WriteByte(idAlphabet[rand.IntN(len(idAlphabet))])
	}
	return b.String()
}

// ValidUserID reports whether id looks like a generated id.
func ValidUserID(id string) bool {
	if len(id) != 3 {
		return false
	}
	_, err := strconv.ParseUint(id, 36, 32)
	return err == nil && strings.ToUpper(id) == id
}
