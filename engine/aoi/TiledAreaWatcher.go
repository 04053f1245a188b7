package aoi

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xiaonanln/tilespace/engine/consts"
	"github.com/xiaonanln/tilespace/engine/gwlog"
)

type watcherState int

const (
	watcherCreated watcherState = iota
	watcherStarted
	watcherDestroyed
)

// TiledAreaWatcher is the AreaWatcher subscribing the moved notifications of the tiles its circle covers
type TiledAreaWatcher struct {
	index       *SpatialIndex
	shape       Circle
	callback    VisibilityCallback
	state       watcherState
	connections map[*Tile]Subscription
	visible     map[Entity]struct{}
}

func newTiledAreaWatcher(index *SpatialIndex, shape Circle, callback VisibilityCallback) *TiledAreaWatcher {
	return &TiledAreaWatcher{
		index:       index,
		shape:       shape,
		callback:    callback,
		connections: map[*Tile]Subscription{},
		visible:     map[Entity]struct{}{},
	}
}

func (w *TiledAreaWatcher) String() string {
	return fmt.Sprintf("TiledAreaWatcher<%s, %d visible>", w.shape, len(w.visible))
}

// Start subscribes the covered tiles and reports entities already inside
func (w *TiledAreaWatcher) Start() error {
	switch w.state {
	case watcherStarted:
		return errors.WithStack(ErrWatcherStarted)
	case watcherDestroyed:
		return errors.WithStack(ErrWatcherDestroyed)
	}
	w.state = watcherStarted

	rect := w.index.grid.BoundingCircleToTileRect(w.shape)
	sweeping := true
	rect.ForEach(func(ti TileIndex) bool {
		t := w.index.Tile(ti)
		w.connect(t)
		if sweeping {
			sweeping = w.sweepEnter(t)
		}
		return w.state == watcherStarted
	})
	if consts.DEBUG_AOI {
		gwlog.Debugf("%s started on tiles %s", w, rect)
	}
	return nil
}

// UpdateShape moves or resizes the watched circle, reporting only the entities whose visibility changed
func (w *TiledAreaWatcher) UpdateShape(shape Circle) {
	if w.state != watcherStarted {
		if w.state == watcherCreated {
			w.shape = shape
		}
		return
	}

	grid := w.index.grid
	oldRect := grid.BoundingCircleToTileRect(w.shape)
	newRect := grid.BoundingCircleToTileRect(shape)
	w.shape = shape

	// tiles no longer covered: everything visible in them leaves
	if !oldRect.ForEach(func(ti TileIndex) bool {
		if newRect.Contains(ti) {
			return true
		}
		w.leaveTile(w.index.Tile(ti))
		return w.state == watcherStarted
	}) {
		return
	}

	// tiles still covered: re-test members against the new shape
	if !oldRect.Intersect(newRect).ForEach(func(ti TileIndex) bool {
		w.retestTile(w.index.Tile(ti))
		return w.state == watcherStarted
	}) {
		return
	}

	// tiles newly covered: subscribe and sweep
	sweeping := true
	newRect.ForEach(func(ti TileIndex) bool {
		if oldRect.Contains(ti) {
			return true
		}
		t := w.index.Tile(ti)
		w.connect(t)
		if sweeping {
			sweeping = w.sweepEnter(t)
		}
		return w.state == watcherStarted
	})
}

// Shape returns the watched circle
func (w *TiledAreaWatcher) Shape() Circle {
	return w.shape
}

// IsVisible checks if e was last reported visible
func (w *TiledAreaWatcher) IsVisible(e Entity) bool {
	_, ok := w.visible[e]
	return ok
}

// VisibleCount returns the number of entities reported visible
func (w *TiledAreaWatcher) VisibleCount() int {
	return len(w.visible)
}

// Destroy disconnects all subscriptions. No event is reported afterwards.
func (w *TiledAreaWatcher) Destroy() {
	if w.state == watcherDestroyed {
		return
	}
	for _, sub := range w.connections {
		sub.Disconnect()
	}
	w.connections = nil
	w.visible = nil
	w.state = watcherDestroyed
}

// ConnectedTiles returns the number of tiles subscribed
func (w *TiledAreaWatcher) ConnectedTiles() int {
	return len(w.connections)
}

func (w *TiledAreaWatcher) connect(t *Tile) {
	if _, ok := w.connections[t]; ok {
		return
	}
	w.connections[t] = t.SubscribeMoved(w.onMoved)
}

func (w *TiledAreaWatcher) onMoved(e Entity) {
	if w.state != watcherStarted {
		return
	}
	w.setVisible(e, w.inside(e))
}

func (w *TiledAreaWatcher) inside(e Entity) bool {
	return w.index.Contains(e) && w.shape.Contains(e.GetPosition())
}

// sweepEnter reports members of t inside the shape, returning false if the callback asked to stop
func (w *TiledAreaWatcher) sweepEnter(t *Tile) bool {
	for _, e := range t.Entities() {
		if !t.Contains(e) || w.IsVisible(e) {
			continue
		}
		if !w.inside(e) {
			continue
		}
		if !w.setVisible(e, true) || w.state != watcherStarted {
			return false
		}
	}
	return true
}

func (w *TiledAreaWatcher) retestTile(t *Tile) {
	for _, e := range t.Entities() {
		// members moved by a callback are evaluated where they are now
		w.setVisible(e, w.inside(e))
		if w.state != watcherStarted {
			return
		}
	}
}

func (w *TiledAreaWatcher) leaveTile(t *Tile) {
	if sub, ok := w.connections[t]; ok {
		sub.Disconnect()
		delete(w.connections, t)
	}
	for _, e := range t.Entities() {
		if w.state != watcherStarted {
			return
		}
		w.setVisible(e, w.inside(e))
	}
}

// setVisible records the visibility of e and reports it if changed
func (w *TiledAreaWatcher) setVisible(e Entity, visible bool) bool {
	if w.IsVisible(e) == visible {
		return true
	}
	if visible {
		w.visible[e] = struct{}{}
	} else {
		delete(w.visible, e)
	}
	if consts.DEBUG_AOI {
		gwlog.Debugf("%s: entity %s visible=%v at %s", w, e.ID(), visible, e.GetPosition())
	}
	return w.callback(e, visible)
}
