package aoi

import (
	"math/rand"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/xiaonanln/tilespace/engine/common"
)

type testEntity struct {
	id  common.EntityID
	pos Vector3
}

func newTestEntity(x, z Coord) *testEntity {
	return &testEntity{id: common.GenEntityID(), pos: Vector3{X: x, Z: z}}
}

func (e *testEntity) ID() common.EntityID {
	return e.id
}

func (e *testEntity) GetPosition() Vector3 {
	return e.pos
}

// moveTo changes the position of e and updates the index
func moveTo(t *testing.T, idx *SpatialIndex, e *testEntity, x, z Coord) {
	prev := e.pos
	e.pos = Vector3{X: x, Y: prev.Y, Z: z}
	if err := idx.UpdatePosition(e, prev); err != nil {
		t.Fatalf("UpdatePosition failed: %v", err)
	}
}

func newTestIndex(t *testing.T, min, max, tileWidth Coord) *SpatialIndex {
	return NewSpatialIndex(mustGrid(t, min, min, max, max, tileWidth))
}

// checkIndexConsistency makes sure every tracked entity is in exactly the tile recorded for it
func checkIndexConsistency(t *testing.T, idx *SpatialIndex) {
	total := 0
	idx.grid.FullRect().ForEach(func(ti TileIndex) bool {
		tile := idx.peekTile(ti)
		if tile == nil {
			return true
		}
		for _, e := range tile.Entities() {
			assert.Tf(t, idx.entityTiles[e] == tile, "entity %s in %s but recorded in %s", e.ID(), tile, idx.entityTiles[e])
			total++
		}
		return true
	})
	assert.Equal(t, idx.Count(), total)
	for e, tile := range idx.entityTiles {
		assert.T(t, tile.Contains(e))
		assert.Equal(t, idx.grid.PositionToTileIndex(e.GetPosition()), tile.Index())
	}
}

func TestAddRemoveEntity(t *testing.T) {
	idx := newTestIndex(t, 0, 100, 10)
	e := newTestEntity(15, 25)
	assert.Equal(t, nil, idx.AddEntity(e))
	assert.T(t, idx.Contains(e))
	ti, ok := idx.TileIndexOf(e)
	assert.T(t, ok)
	assert.Equal(t, TileIndex{1, 2}, ti)

	err := idx.AddEntity(e)
	assert.Equal(t, ErrAlreadyTracked, errors.Cause(err))
	assert.Equal(t, 1, idx.Count())

	assert.Equal(t, nil, idx.RemoveEntity(e))
	assert.T(t, !idx.Contains(e))
	assert.Equal(t, 0, idx.Tile(TileIndex{1, 2}).Count())
	_, ok = idx.TileIndexOf(e)
	assert.T(t, !ok)

	assert.Equal(t, ErrNotTracked, errors.Cause(idx.RemoveEntity(e)))
	assert.Equal(t, ErrNotTracked, errors.Cause(idx.UpdatePosition(e, Vector3{})))
	checkIndexConsistency(t, idx)
}

func TestUpdatePositionNotifications(t *testing.T) {
	idx := newTestIndex(t, 0, 100, 10)
	e := newTestEntity(1, 1)
	assert.Equal(t, nil, idx.AddEntity(e))

	notified := map[TileIndex]int{}
	for _, ti := range []TileIndex{{0, 0}, {1, 0}} {
		ti := ti
		idx.Tile(ti).SubscribeMoved(func(Entity) {
			notified[ti]++
		})
	}

	// same position: nothing happens
	idx.UpdatePosition(e, e.pos)
	assert.Equal(t, 0, len(notified))

	// inside the same tile
	moveTo(t, idx, e, 5, 5)
	assert.Equal(t, map[TileIndex]int{{0, 0}: 1}, notified)

	// across a tile boundary both tiles hear about it
	moveTo(t, idx, e, 15, 5)
	assert.Equal(t, map[TileIndex]int{{0, 0}: 2, {1, 0}: 1}, notified)
	assert.T(t, !idx.Tile(TileIndex{0, 0}).Contains(e))
	assert.T(t, idx.Tile(TileIndex{1, 0}).Contains(e))

	// removal notifies the tile it left
	idx.RemoveEntity(e)
	assert.Equal(t, map[TileIndex]int{{0, 0}: 2, {1, 0}: 2}, notified)
}

func TestTileBoundaryCrossing(t *testing.T) {
	idx := newTestIndex(t, 0, 100, 10)
	e := newTestEntity(9, 0)
	assert.Equal(t, nil, idx.AddEntity(e))
	ti, _ := idx.TileIndexOf(e)
	assert.Equal(t, TileIndex{0, 0}, ti)

	// both circles only cover one tile column
	left := Circle{5, 0, 4.5}
	right := Circle{15, 0, 4.5}
	assert.Equal(t, TileRect{TileIndex{0, 0}, TileIndex{0, 0}}, idx.grid.BoundingCircleToTileRect(left))
	assert.Equal(t, TileRect{TileIndex{1, 0}, TileIndex{1, 0}}, idx.grid.BoundingCircleToTileRect(right))

	leftEvents := newEventRecorder(t)
	rightEvents := newEventRecorder(t)
	leftWatcher := idx.WatchArea(left, leftEvents.callback)
	rightWatcher := idx.WatchArea(right, rightEvents.callback)
	assert.Equal(t, nil, leftWatcher.Start())
	assert.Equal(t, nil, rightWatcher.Start())
	assert.Equal(t, []visibilityEvent{{e, true}}, leftEvents.events)
	assert.Equal(t, 0, len(rightEvents.events))
	leftEvents.reset()

	moveTo(t, idx, e, 11, 0)
	ti, _ = idx.TileIndexOf(e)
	assert.Equal(t, TileIndex{1, 0}, ti)
	assert.Equal(t, []visibilityEvent{{e, false}}, leftEvents.events)
	assert.Equal(t, []visibilityEvent{{e, true}}, rightEvents.events)
	checkIndexConsistency(t, idx)
}

func TestFindEntitiesStop(t *testing.T) {
	idx := newTestIndex(t, 0, 100, 10)
	for i := 0; i < 20; i++ {
		idx.AddEntity(newTestEntity(Coord(i*5), 50))
	}
	n := 0
	idx.FindEntities(Circle{50, 50, 100}, func(e Entity) bool {
		n++
		return n < 3
	})
	assert.Equal(t, 3, n)
}

func TestFindEntitiesRemovingDuringVisit(t *testing.T) {
	idx := newTestIndex(t, 0, 100, 10)
	var all []*testEntity
	for i := 0; i < 10; i++ {
		e := newTestEntity(1, 1)
		all = append(all, e)
		idx.AddEntity(e)
	}
	visited := 0
	idx.FindEntities(Circle{1, 1, 5}, func(e Entity) bool {
		visited++
		// despawn everything on first sight
		for _, other := range all {
			if idx.Contains(other) {
				idx.RemoveEntity(other)
			}
		}
		return true
	})
	assert.Equal(t, 1, visited)
	assert.Equal(t, 0, idx.Count())
}

// bruteForceFind returns entities inside c by checking all of them
func bruteForceFind(entities []*testEntity, tracked map[*testEntity]bool, c Circle) map[Entity]bool {
	res := map[Entity]bool{}
	for _, e := range entities {
		if tracked[e] && c.Contains(e.pos) {
			res[e] = true
		}
	}
	return res
}

func TestFindEntitiesMatchesBruteForce(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	var entities []*testEntity
	for i := 0; i < 500; i++ {
		// some of them are out of the world bounds
		entities = append(entities, newTestEntity(Coord(rnd.Float64()*600-300), Coord(rnd.Float64()*600-300)))
	}

	for _, tileWidth := range []Coord{1, 7, 10, 33.3, 100, 1000} {
		idx := newTestIndex(t, -250, 250, tileWidth)
		tracked := map[*testEntity]bool{}
		for _, e := range entities {
			assert.Equal(t, nil, idx.AddEntity(e))
			tracked[e] = true
		}
		checkIndexConsistency(t, idx)

		for q := 0; q < 200; q++ {
			c := Circle{Coord(rnd.Float64()*700 - 350), Coord(rnd.Float64()*700 - 350), Coord(rnd.Float64() * 150)}
			found := map[Entity]bool{}
			idx.FindEntities(c, func(e Entity) bool {
				assert.Tf(t, !found[e], "entity %s visited twice", e.ID())
				found[e] = true
				return true
			})
			assert.Equal(t, bruteForceFind(entities, tracked, c), found)
		}
	}
}

func TestIndexConsistencyRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	idx := newTestIndex(t, 0, 200, 13)
	var entities []*testEntity
	for i := 0; i < 100; i++ {
		entities = append(entities, newTestEntity(Coord(rnd.Float64()*220-10), Coord(rnd.Float64()*220-10)))
	}
	for step := 0; step < 5000; step++ {
		e := entities[rnd.Intn(len(entities))]
		switch op := rnd.Intn(10); {
		case op < 2:
			if idx.Contains(e) {
				assert.Equal(t, nil, idx.RemoveEntity(e))
			} else {
				assert.Equal(t, nil, idx.AddEntity(e))
			}
		case idx.Contains(e):
			moveTo(t, idx, e, e.pos.X+Coord(rnd.Float64()*30-15), e.pos.Z+Coord(rnd.Float64()*30-15))
		}
		if step%100 == 0 {
			checkIndexConsistency(t, idx)
		}
	}
	checkIndexConsistency(t, idx)
}
