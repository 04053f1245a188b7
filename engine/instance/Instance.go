package instance

import (
	"fmt"
	"time"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/tilespace/engine/aoi"
	"github.com/xiaonanln/tilespace/engine/config"
	"github.com/xiaonanln/tilespace/engine/consts"
	"github.com/xiaonanln/tilespace/engine/gwlog"
)

// Instance is one simulated copy of a map with its own spatial index
//
// Everything except ID, MapID and String must be called from the scheduler goroutine.
type Instance struct {
	id         int
	mapConfig  *config.MapConfig
	index      *aoi.SpatialIndex
	createTime time.Time
	lastUpdate time.Time
	tickCount  uint64
	destroyed  xnsyncutil.AtomicBool
}

func newInstance(id int, mc *config.MapConfig, now time.Time) (*Instance, error) {
	grid, err := aoi.NewTileGrid(aoi.Coord(mc.MinX), aoi.Coord(mc.MinZ), aoi.Coord(mc.MaxX), aoi.Coord(mc.MaxZ), aoi.Coord(mc.TileWidth))
	if err != nil {
		return nil, err
	}
	return &Instance{
		id:         id,
		mapConfig:  mc,
		index:      aoi.NewSpatialIndex(grid),
		createTime: now,
		lastUpdate: now,
	}, nil
}

func (inst *Instance) String() string {
	return fmt.Sprintf("Instance<%d|map%d %s>", inst.id, inst.mapConfig.ID, inst.mapConfig.Name)
}

// ID returns the instance ID, unique in its scheduler
func (inst *Instance) ID() int {
	return inst.id
}

// MapID returns the ID of the map the instance is created for
func (inst *Instance) MapID() int {
	return inst.mapConfig.ID
}

// MapConfig returns the config of the map
func (inst *Instance) MapConfig() *config.MapConfig {
	return inst.mapConfig
}

// Index returns the spatial index of the instance
func (inst *Instance) Index() *aoi.SpatialIndex {
	return inst.index
}

// IsDestroyed returns true after the instance is destroyed
func (inst *Instance) IsDestroyed() bool {
	return inst.destroyed.Load()
}

// TickCount returns how many times the instance has been updated
func (inst *Instance) TickCount() uint64 {
	return inst.tickCount
}

// AddEntity puts e in the instance at its current position
//
// Adding an entity twice corrupts the visibility of the whole instance, so it panics.
func (inst *Instance) AddEntity(e aoi.Entity) {
	if err := inst.index.AddEntity(e); err != nil {
		gwlog.Panicf("%s.AddEntity: %+v", inst, err)
	}
}

// RemoveEntity takes e out of the instance. It panics if e is not in the instance.
func (inst *Instance) RemoveEntity(e aoi.Entity) {
	if err := inst.index.RemoveEntity(e); err != nil {
		gwlog.Panicf("%s.RemoveEntity: %+v", inst, err)
	}
}

// MoveEntity should be called after the position of e changed from prevPos
func (inst *Instance) MoveEntity(e aoi.Entity, prevPos aoi.Vector3) {
	if err := inst.index.UpdatePosition(e, prevPos); err != nil {
		gwlog.Panicf("%s.MoveEntity: %+v", inst, err)
	}
}

// FindEntities calls visitor with entities inside c until visitor returns false
func (inst *Instance) FindEntities(c aoi.Circle, visitor func(e aoi.Entity) bool) {
	inst.index.FindEntities(c, visitor)
}

// WatchArea creates a watcher of c in the instance. It is started by the caller.
func (inst *Instance) WatchArea(c aoi.Circle, callback aoi.VisibilityCallback) aoi.AreaWatcher {
	return inst.index.WatchArea(c, callback)
}

// Update records one tick of the instance
func (inst *Instance) Update(now time.Time, dt time.Duration) {
	inst.tickCount += 1
	inst.lastUpdate = now
	if consts.DEBUG_INSTANCES {
		gwlog.Debugf("%s update #%d: dt=%s, %d entities", inst, inst.tickCount, dt, inst.index.Count())
	}
}
