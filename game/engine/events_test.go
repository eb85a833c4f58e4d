package engine

import (
	"sync"
	"testing"
)

func TestBus_OrderAndSequence(t *testing.T) {
	bus := NewBus()
	first := bus.Subscribe()
	second := bus.Subscribe()
	defer first.Close()
	defer second.Close()

	bus.Publish(Event{Kind: EventPawnMoved})
	bus.Publish(Event{Kind: EventTimerFlipped})
	bus.Publish(Event{Kind: EventGameOver})

	for _, sub := range []*Subscription{first, second} {
		events := sub.Drain()
		if len(events) != 3 {
			t.Fatalf("Expected 3 events, got %d", len(events))
		}
		for i, ev := range events {
			if ev.Seq != uint64(i+1) {
				t.Errorf("Event %d: expected seq %d, got %d", i, i+1, ev.Seq)
			}
			if ev.Time.IsZero() {
				t.Errorf("Event %d should be stamped", i)
			}
		}
		if events[1].Kind != EventTimerFlipped {
			t.Errorf("Events out of order: %v", kinds(events))
		}
		if len(sub.Drain()) != 0 {
			t.Error("Drain should empty the queue")
		}
	}
}

func TestBus_LateSubscriberAndClose(t *testing.T) {
	bus := NewBus()
	bus.Publish(Event{Kind: EventPawnMoved})

	sub := bus.Subscribe()
	bus.Publish(Event{Kind: EventDiscovered})

	select {
	case <-sub.Ready():
	default:
		t.Error("Ready should be signalled after a publish")
	}

	events := sub.Drain()
	if len(events) != 1 || events[0].Kind != EventDiscovered {
		t.Errorf("Late subscriber should only see later events, got %v", kinds(events))
	}

	sub.Close()
	bus.Publish(Event{Kind: EventGameOver})
	if len(sub.Drain()) != 0 {
		t.Error("Closed subscription should receive nothing")
	}
}

func TestBus_ConcurrentPublishers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(Event{Kind: EventDoSomething})
			}
		}()
	}
	wg.Wait()

	events := sub.Drain()
	if len(events) != 400 {
		t.Fatalf("Expected 400 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("Sequence not increasing at %d: %d after %d", i, events[i].Seq, events[i-1].Seq)
		}
	}
}

func TestBoard_EventsFollowMutationOrder(t *testing.T) {
	board := createTestBoard(t)
	sub := board.Subscribe()
	defer sub.Close()

	mustPerform(t, board, Green, MoveNorth)
	mustPerform(t, board, Purple, MoveWest)
	board.PlaceDoSomethingToken("bot", Discover)

	events := sub.Drain()
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %v", kinds(events))
	}
	if events[0].Pawn != Green || events[1].Pawn != Purple {
		t.Errorf("Moves out of order: %s then %s", events[0].Pawn, events[1].Pawn)
	}
	if events[1].From != (Coordinate{Row: 5, Col: 6}) || events[1].To != (Coordinate{Row: 5, Col: 5}) {
		t.Errorf("Unexpected purple move %s -> %s", events[1].From, events[1].To)
	}
	if events[2].Kind != EventDoSomething {
		t.Errorf("Expected do-something last, got %s", events[2].Kind)
	}
}
