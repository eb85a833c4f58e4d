package engine

import "time"

// Perform executes an action for a pawn on behalf of actor. It is the single
// mutation entry point; invalid actions leave the board unchanged.
func (b *Board) Perform(actor string, pawn Color, action Action) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ok bool
	if p := b.activePawn(pawn); p != nil {
		switch action.Type {
		case MoveNorth, MoveEast, MoveSouth, MoveWest, Escalator:
			ok = b.step(actor, p, action)
		case Vortex:
			ok = b.teleport(actor, p, action.Target)
		case Discover:
			ok = b.discover(actor, p) > 0
		}
	}
	b.record(actor, pawn, action, ok)
	return ok
}

// MovePawn moves a pawn one tile in the direction of a move action.
func (b *Board) MovePawn(actor string, pawn Color, move ActionType) bool {
	if _, ok := move.Direction(); !ok {
		return false
	}
	return b.Perform(actor, pawn, NewAction(move))
}

// UseEscalator rides the escalator under the pawn to its other end.
func (b *Board) UseEscalator(actor string, pawn Color) bool {
	return b.Perform(actor, pawn, NewAction(Escalator))
}

// UseVortex teleports a pawn to its own-color vortex with the given id.
// Unknown ids are logged and leave the board unchanged.
func (b *Board) UseVortex(actor string, pawn Color, id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.activePawn(pawn)
	if p == nil {
		return false
	}
	target, found := b.grid.VortexByID(pawn, id)
	if !found {
		b.logger.Warn("invalid vortex target", "actor", actor, "pawn", pawn, "vortex", id)
		b.record(actor, pawn, NewAction(Vortex), false)
		return false
	}
	ok := b.teleport(actor, p, target)
	b.record(actor, pawn, VortexTo(target), ok)
	return ok
}

// DiscoverCard draws the next card through the pawn's discovery tile and
// returns its id, or 0 when nothing was discovered.
func (b *Board) DiscoverCard(actor string, pawn Color) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := 0
	if p := b.activePawn(pawn); p != nil {
		id = b.discover(actor, p)
	}
	b.record(actor, pawn, NewAction(Discover), id > 0)
	return id
}

// PlaceDoSomethingToken asks whoever owns t to act.
func (b *Board) PlaceDoSomethingToken(actor string, t ActionType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.over {
		return
	}
	b.tokens++
	b.bus.Publish(Event{Kind: EventDoSomething, Actor: actor, ActionType: t, TimeLeft: b.timeLeft})
}

// destination resolves where a movement action would take the pawn,
// ignoring occupancy.
func (b *Board) destination(p *Pawn, action Action) (Coordinate, bool) {
	switch action.Type {
	case MoveNorth, MoveEast, MoveSouth, MoveWest:
		d, _ := action.Type.Direction()
		next := p.At.Step(d)
		if !b.grid.TileAt(next).Walkable() || b.grid.WallBetween(p.At, next) {
			return Coordinate{}, false
		}
		return next, true
	case Escalator:
		return b.grid.EscalatorPartner(p.At)
	case Vortex:
		if !b.firstPhase || action.Target == p.At {
			return Coordinate{}, false
		}
		t := b.grid.TileAt(action.Target)
		if t == nil || t.Type != VortexTile || t.Color != p.Color {
			return Coordinate{}, false
		}
		return action.Target, true
	}
	return Coordinate{}, false
}

func (b *Board) step(actor string, p *Pawn, action Action) bool {
	to, ok := b.destination(p, action)
	if !ok || b.grid.IsOccupied(to) {
		return false
	}
	b.moveTo(actor, p, to, action)
	return true
}

func (b *Board) teleport(actor string, p *Pawn, target Coordinate) bool {
	action := VortexTo(target)
	to, ok := b.destination(p, action)
	if !ok {
		t := b.grid.TileAt(target)
		if b.firstPhase && (t == nil || t.Type != VortexTile || t.Color != p.Color) {
			b.logger.Warn("invalid vortex target", "actor", actor, "pawn", p.Color, "target", target)
		}
		return false
	}
	if b.grid.IsOccupied(to) {
		return false
	}
	b.moveTo(actor, p, to, action)
	return true
}

func (b *Board) moveTo(actor string, p *Pawn, to Coordinate, action Action) {
	from := p.At
	b.grid.TileAt(from).Occupied = false
	b.grid.TileAt(to).Occupied = true
	p.At = to
	b.moves++

	b.bus.Publish(Event{
		Kind:     EventPawnMoved,
		Actor:    actor,
		Pawn:     p.Color,
		Action:   action,
		From:     from,
		To:       to,
		TimeLeft: b.timeLeft,
	})
	b.land(p)
}

// land applies the effects of the tile a pawn just arrived on.
func (b *Board) land(p *Pawn) {
	tile := b.grid.TileAt(p.At)

	if tile.Type == TimerTile && !tile.Used {
		tile.Used = true
		b.timeLeft = b.timerMax - b.timeLeft
		b.bus.Publish(Event{Kind: EventTimerFlipped, Pawn: p.Color, To: p.At, TimeLeft: b.timeLeft})
		b.logger.Debug("timer flipped", "pawn", p.Color, "time_left", b.timeLeft)
	}

	if b.firstPhase {
		if b.allOnItems() {
			b.firstPhase = false
			b.bus.Publish(Event{Kind: EventFirstPhaseCompleted, TimeLeft: b.timeLeft})
			b.logger.Info("all items collected", "deck", b.deckName, "time_left", b.timeLeft)
		}
		return
	}

	if tile.Type == ExitTile && tile.Color == p.Color {
		tile.Occupied = false
		p.Exited = true
		b.logger.Debug("pawn escaped", "pawn", p.Color)
		for _, other := range b.pawns {
			if !other.Exited {
				return
			}
		}
		b.finish(true)
	}
}

func (b *Board) allOnItems() bool {
	for _, p := range b.pawns {
		t := b.grid.TileAt(p.At)
		if t == nil || t.Type != ItemTile || t.Color != p.Color {
			return false
		}
	}
	return true
}

// discoverySlot returns the free slot and rotation a discovery from the
// pawn's tile would use.
func (b *Board) discoverySlot(p *Pawn) (Slot, int, bool) {
	tile := b.grid.TileAt(p.At)
	if tile == nil || tile.Type != DiscoveryTile || tile.Color != p.Color || len(b.deck) == 0 {
		return Slot{}, 0, false
	}
	slot := b.grid.SlotOf(p.At).Neighbor(tile.Side)
	if !b.grid.SlotFree(slot) {
		return Slot{}, 0, false
	}
	return slot, EntryRotation(tile.Side), true
}

func (b *Board) discover(actor string, p *Pawn) int {
	slot, rotation, ok := b.discoverySlot(p)
	if !ok {
		return 0
	}
	card := b.deck[0]
	if err := b.grid.Place(card.Rotate(rotation), slot); err != nil {
		b.logger.Error("failed to place card", "card", card.ID, "error", err)
		return 0
	}
	b.deck = b.deck[1:]

	b.bus.Publish(Event{
		Kind:       EventDiscovered,
		Actor:      actor,
		Pawn:       p.Color,
		Action:     NewAction(Discover),
		From:       p.At,
		To:         p.At,
		CardID:     card.ID,
		CardOrigin: slot.Origin(),
		TimeLeft:   b.timeLeft,
	})
	b.logger.Debug("card discovered", "card", card.ID, "slot_row", slot.Row, "slot_col", slot.Col, "pawn", p.Color)
	return card.ID
}

func (b *Board) record(actor string, pawn Color, action Action, success bool) {
	b.attempts++
	b.history = append(b.history, ActionRecord{
		Actor:     actor,
		Pawn:      pawn,
		Action:    action,
		Success:   success,
		TimeLeft:  b.timeLeft,
		Timestamp: time.Now(),
	})
	if len(b.history) > historyLimit {
		b.history = b.history[len(b.history)-historyLimit:]
	}
}
