// Package inmemory provides an in-process history.Driver.
package inmemory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/graphchat/pkg/history"
)

// noTurn marks an empty tail or the start of a chain.
const noTurn = -1

// entry is an arena slot: a turn and the index of its predecessor.
type entry struct {
	turn *history.Turn
	prev int
}

// session owns a chain through the arena. mu serialises appends and clears
// of the session; tail is the index of the most recent turn and is guarded
// by the driver's mu, since compaction moves it.
type session struct {
	mu   sync.Mutex
	tail int
}

// Driver implements history.Driver with an arena of turns and a per-session
// tail index. Cleared turns are released by compacting the arena once they
// make up at least half of it.
type Driver struct {
	// mu guards the arena, the session map and every session tail
	mu       sync.RWMutex
	arena    []entry
	sessions map[string]*session
	dead     int

	now func() time.Time
}

// Ensure Driver implements history.Driver
var _ history.Driver = (*Driver)(nil)

// NewDriver creates a new in-memory history driver.
func NewDriver() *Driver {
	return &Driver{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (d *Driver) session(id string) *session {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[id]
	if !ok {
		s = &session{tail: noTurn}
		d.sessions[id] = s
	}
	return s
}

// Append implements history.Driver.
func (d *Driver) Append(_ context.Context, sessionID string, turn *history.Turn) (string, error) {
	if err := history.Validate(sessionID, turn); err != nil {
		return "", err
	}

	s := d.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *turn
	stored.ID = uuid.NewString()
	stored.SessionID = sessionID
	stored.CreatedAt = d.now().UTC()
	stored.SourceIDs = slices.Clone(turn.SourceIDs)
	if stored.SourceIDs == nil {
		stored.SourceIDs = []string{}
	}

	d.mu.Lock()
	d.arena = append(d.arena, entry{turn: &stored, prev: s.tail})
	s.tail = len(d.arena) - 1
	d.mu.Unlock()

	return stored.ID, nil
}

// Read implements history.Driver.
func (d *Driver) Read(_ context.Context, sessionID string, window int) ([]*history.Turn, error) {
	if sessionID == "" {
		return nil, history.ErrEmptySession
	}
	window = history.Window(window)

	d.mu.RLock()
	s, ok := d.sessions[sessionID]
	d.mu.RUnlock()
	if !ok {
		return []*history.Turn{}, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	turns := make([]*history.Turn, 0, window+1)
	for idx := s.tail; idx != noTurn && len(turns) <= window; idx = d.arena[idx].prev {
		t := *d.arena[idx].turn
		t.SourceIDs = slices.Clone(t.SourceIDs)
		turns = append(turns, &t)
	}
	slices.Reverse(turns)
	return turns, nil
}

// Clear implements history.Driver. The session's turns are released from
// the arena; the session itself is kept.
func (d *Driver) Clear(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return history.ErrEmptySession
	}

	d.mu.RLock()
	s, ok := d.sessions[sessionID]
	d.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	for idx := s.tail; idx != noTurn; idx = d.arena[idx].prev {
		d.arena[idx].turn = nil
		d.dead++
	}
	s.tail = noTurn

	if d.dead*2 >= len(d.arena) {
		d.compact()
	}
	return nil
}

// compact drops released slots and rewrites the indexes that point past
// them. The caller holds mu for writing.
func (d *Driver) compact() {
	moved := make([]int, len(d.arena))
	live := d.arena[:0]
	for idx, e := range d.arena {
		if e.turn == nil {
			moved[idx] = noTurn
			continue
		}
		moved[idx] = len(live)
		if e.prev != noTurn {
			e.prev = moved[e.prev]
		}
		live = append(live, e)
	}
	clear(d.arena[len(live):])
	d.arena = live
	d.dead = 0

	for _, s := range d.sessions {
		if s.tail != noTurn {
			s.tail = moved[s.tail]
		}
	}
}

// Len is the number of turns held in the arena.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.arena)
}

// Close implements history.Driver.
func (d *Driver) Close() error {
	return nil
}
