package engine

import (
	"sync"
	"time"
)

// EventKind names the board notifications delivered to subscribers.
type EventKind string

const (
	EventPawnMoved           EventKind = "pawn-moved"
	EventDiscovered          EventKind = "discovered"
	EventFirstPhaseCompleted EventKind = "first-phase-completed"
	EventTimerFlipped        EventKind = "timer-flipped"
	EventDoSomething         EventKind = "do-something"
	EventGameOver            EventKind = "game-over"
)

// Event is one board notification. Seq is assigned by the bus and gives a
// total order over every event of a match.
type Event struct {
	Seq        uint64     `json:"seq"`
	Kind       EventKind  `json:"kind"`
	Actor      string     `json:"actor,omitempty"`
	Pawn       Color      `json:"pawn,omitempty"`
	Action     Action     `json:"action"`
	From       Coordinate `json:"from"`
	To         Coordinate `json:"to"`
	CardID     int        `json:"card_id,omitempty"`
	CardOrigin Coordinate `json:"card_origin"`
	TimeLeft   int        `json:"time_left"`
	ActionType ActionType `json:"action_type,omitempty"`
	Victory    bool       `json:"victory,omitempty"`
	Time       time.Time  `json:"time"`
}

// Bus fans events out to subscribers. Publishing never blocks: each
// subscriber owns an unbounded FIFO queue.
type Bus struct {
	mu   sync.Mutex
	seq  uint64
	subs map[*Subscription]struct{}
	now  func() time.Time
}

// NewBus creates an event bus with no subscribers.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[*Subscription]struct{}),
		now:  time.Now,
	}
}

// Publish stamps the event and appends it to every subscriber queue.
func (b *Bus) Publish(ev Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	ev.Seq = b.seq
	ev.Time = b.now()
	for sub := range b.subs {
		sub.push(ev)
	}
	return ev
}

// Subscribe registers a new subscriber that receives every later event.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{bus: b, ready: make(chan struct{}, 1)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Subscription is one subscriber's queue of pending events.
type Subscription struct {
	bus    *Bus
	mu     sync.Mutex
	queue  []Event
	closed bool
	ready  chan struct{}
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Drain removes and returns every pending event in publish order.
func (s *Subscription) Drain() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.queue
	s.queue = nil
	return events
}

// Ready is signalled whenever new events are queued.
func (s *Subscription) Ready() <-chan struct{} {
	return s.ready
}

// Close detaches the subscription and drops anything still queued.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
}
