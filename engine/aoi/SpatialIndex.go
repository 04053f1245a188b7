package aoi

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/tilespace/engine/consts"
	"github.com/xiaonanln/tilespace/engine/gwlog"
)

// SpatialIndex buckets tracked entities into the tiles of a grid
//
// SpatialIndex is not safe for concurrent use; all calls must come from the goroutine owning it.
type SpatialIndex struct {
	grid        *TileGrid
	tiles       [][]*Tile // tiles[x][z], created on first use
	entityTiles map[Entity]*Tile
}

// NewSpatialIndex creates an empty index over grid
func NewSpatialIndex(grid *TileGrid) *SpatialIndex {
	tiles := make([][]*Tile, grid.Width())
	for x := range tiles {
		tiles[x] = make([]*Tile, grid.Height())
	}
	return &SpatialIndex{
		grid:        grid,
		tiles:       tiles,
		entityTiles: map[Entity]*Tile{},
	}
}

// Grid returns the grid of the index
func (idx *SpatialIndex) Grid() *TileGrid {
	return idx.grid
}

// Tile returns the tile at ti, clamped into the grid, creating it if needed
func (idx *SpatialIndex) Tile(ti TileIndex) *Tile {
	ti = idx.grid.ClampIndex(ti)
	t := idx.tiles[ti.X][ti.Z]
	if t == nil {
		t = newTile(ti)
		idx.tiles[ti.X][ti.Z] = t
	}
	return t
}

// peekTile returns the tile at ti or nil if it was never used
func (idx *SpatialIndex) peekTile(ti TileIndex) *Tile {
	return idx.tiles[ti.X][ti.Z]
}

// Count returns the number of tracked entities
func (idx *SpatialIndex) Count() int {
	return len(idx.entityTiles)
}

// Contains checks if e is tracked
func (idx *SpatialIndex) Contains(e Entity) bool {
	_, ok := idx.entityTiles[e]
	return ok
}

// TileIndexOf returns the index of the tile holding e
func (idx *SpatialIndex) TileIndexOf(e Entity) (TileIndex, bool) {
	t, ok := idx.entityTiles[e]
	if !ok {
		return TileIndex{}, false
	}
	return t.index, true
}

// AddEntity starts tracking e at its current position
func (idx *SpatialIndex) AddEntity(e Entity) error {
	if _, ok := idx.entityTiles[e]; ok {
		return errors.Wrapf(ErrAlreadyTracked, "add entity %s", e.ID())
	}
	t := idx.Tile(idx.grid.PositionToTileIndex(e.GetPosition()))
	idx.entityTiles[e] = t
	t.AddEntity(e)
	if consts.DEBUG_AOI {
		gwlog.Debugf("%s: entity %s added to %s", idx, e.ID(), t)
	}
	return nil
}

// RemoveEntity stops tracking e. Watchers of its tile see it leave.
func (idx *SpatialIndex) RemoveEntity(e Entity) error {
	t, ok := idx.entityTiles[e]
	if !ok {
		return errors.Wrapf(ErrNotTracked, "remove entity %s", e.ID())
	}
	t.RemoveEntity(e)
	delete(idx.entityTiles, e)
	t.NotifyMoved(e)
	if consts.DEBUG_AOI {
		gwlog.Debugf("%s: entity %s removed from %s", idx, e.ID(), t)
	}
	return nil
}

// UpdatePosition moves e to the tile of its current position. prevPos is where e was before the move.
//
// If the current position equals prevPos nothing happens, no tile is notified. Callers must pass the
// position e had before it moved, not a stale one.
func (idx *SpatialIndex) UpdatePosition(e Entity, prevPos Vector3) error {
	oldTile, ok := idx.entityTiles[e]
	if !ok {
		return errors.Wrapf(ErrNotTracked, "update entity %s", e.ID())
	}
	pos := e.GetPosition()
	if pos == prevPos {
		return nil
	}

	ti := idx.grid.PositionToTileIndex(pos)
	if ti == oldTile.index {
		oldTile.NotifyMoved(e)
		return nil
	}

	oldTile.RemoveEntity(e)
	newTile := idx.Tile(ti)
	idx.entityTiles[e] = newTile
	newTile.AddEntity(e)
	oldTile.NotifyMoved(e)
	if consts.DEBUG_AOI {
		gwlog.Debugf("%s: entity %s moved %s -> %s", idx, e.ID(), oldTile.index, ti)
	}
	return nil
}

// FindEntities calls visitor with every tracked entity inside c until visitor returns false
func (idx *SpatialIndex) FindEntities(c Circle, visitor func(e Entity) bool) {
	rect := idx.grid.BoundingCircleToTileRect(c)
	rect.ForEach(func(ti TileIndex) bool {
		t := idx.peekTile(ti)
		if t == nil || t.Count() == 0 {
			return true
		}
		for _, e := range t.Entities() {
			if !t.Contains(e) { // removed by visitor
				continue
			}
			if c.Contains(e.GetPosition()) && !visitor(e) {
				return false
			}
		}
		return true
	})
}

// WatchArea creates a watcher of c. Call Start on it to receive events.
func (idx *SpatialIndex) WatchArea(c Circle, callback VisibilityCallback) AreaWatcher {
	return newTiledAreaWatcher(idx, c, callback)
}

func (idx *SpatialIndex) String() string {
	return "SpatialIndex<" + idx.grid.String() + ">"
}
