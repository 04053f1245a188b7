package aoi

import "fmt"

// MovedHandler is called when an entity in the tile moved, entered or left it
type MovedHandler func(e Entity)

type movedSlot struct {
	handler MovedHandler
	gen     uint32
}

// movedSignal is an arena of handler slots; freed slots are reused with a new generation
type movedSignal struct {
	slots []movedSlot
	free  []int
	live  int
}

func (sig *movedSignal) connect(h MovedHandler) Subscription {
	var i int
	if n := len(sig.free); n > 0 {
		i = sig.free[n-1]
		sig.free = sig.free[:n-1]
	} else {
		i = len(sig.slots)
		sig.slots = append(sig.slots, movedSlot{})
	}
	sig.slots[i].handler = h
	sig.live += 1
	return Subscription{sig: sig, slot: i, gen: sig.slots[i].gen}
}

func (sig *movedSignal) emit(e Entity) {
	// slots appended during emit are skipped
	n := len(sig.slots)
	for i := 0; i < n; i++ {
		if h := sig.slots[i].handler; h != nil {
			h(e)
		}
	}
}

// Subscription is the handle of a connected MovedHandler
type Subscription struct {
	sig  *movedSignal
	slot int
	gen  uint32
}

// Connected returns true until Disconnect is called
func (s Subscription) Connected() bool {
	return s.sig != nil && s.sig.slots[s.slot].gen == s.gen && s.sig.slots[s.slot].handler != nil
}

// Disconnect stops the handler from being called. Calling it again does nothing.
func (s Subscription) Disconnect() {
	if !s.Connected() {
		return
	}
	sl := &s.sig.slots[s.slot]
	sl.handler = nil
	sl.gen += 1
	s.sig.free = append(s.sig.free, s.slot)
	s.sig.live -= 1
}

// Tile holds the entities located in one grid cell
type Tile struct {
	index    TileIndex
	entities map[Entity]struct{}
	moved    movedSignal
}

func newTile(index TileIndex) *Tile {
	return &Tile{
		index:    index,
		entities: map[Entity]struct{}{},
	}
}

func (t *Tile) String() string {
	return fmt.Sprintf("Tile%s<%d entities>", t.index, len(t.entities))
}

// Index returns the tile index
func (t *Tile) Index() TileIndex {
	return t.index
}

// AddEntity puts e in the tile and notifies moved handlers
func (t *Tile) AddEntity(e Entity) {
	t.entities[e] = struct{}{}
	t.NotifyMoved(e)
}

// RemoveEntity takes e out of the tile without notifying
func (t *Tile) RemoveEntity(e Entity) {
	delete(t.entities, e)
}

// Contains checks if e is in the tile
func (t *Tile) Contains(e Entity) bool {
	_, ok := t.entities[e]
	return ok
}

// Count returns the number of entities in the tile
func (t *Tile) Count() int {
	return len(t.entities)
}

// Entities returns a copy of the entities in the tile, safe to iterate while the tile changes
func (t *Tile) Entities() []Entity {
	list := make([]Entity, 0, len(t.entities))
	for e := range t.entities {
		list = append(list, e)
	}
	return list
}

// SubscribeMoved connects h to the moved notification of the tile
func (t *Tile) SubscribeMoved(h MovedHandler) Subscription {
	return t.moved.connect(h)
}

// SubscriberCount returns the number of connected moved handlers
func (t *Tile) SubscriberCount() int {
	return t.moved.live
}

// NotifyMoved calls every connected moved handler with e
func (t *Tile) NotifyMoved(e Entity) {
	t.moved.emit(e)
}
