package instance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/xiaonanln/tilespace/engine/aoi"
	"github.com/xiaonanln/tilespace/engine/common"
	"github.com/xiaonanln/tilespace/engine/config"
	"github.com/xiaonanln/tilespace/engine/gwutils"
)

type testEntity struct {
	id  common.EntityID
	pos aoi.Vector3
}

func newTestEntity(x, z aoi.Coord) *testEntity {
	return &testEntity{id: common.GenEntityID(), pos: aoi.Vector3{X: x, Z: z}}
}

func (e *testEntity) ID() common.EntityID {
	return e.id
}

func (e *testEntity) GetPosition() aoi.Vector3 {
	return e.pos
}

func testSchedulerConfig() *config.SchedulerConfig {
	return &config.SchedulerConfig{
		TickInterval:        time.Millisecond * 5,
		TimerResolution:     time.Millisecond,
		UpdateWarnThreshold: time.Second,
	}
}

func testMaps() map[int]*config.MapConfig {
	return map[int]*config.MapConfig{
		1: {ID: 1, Name: "meadow", TileWidth: 10, MinX: 0, MinZ: 0, MaxX: 100, MaxZ: 100},
		2: {ID: 2, Name: "dungeon", TileWidth: 5, MinX: -50, MinZ: -50, MaxX: 50, MaxZ: 50},
		3: {ID: 3, Name: "broken", TileWidth: 0, MinX: 0, MinZ: 0, MaxX: 100, MaxZ: 100},
	}
}

type recordingDelegate struct {
	DefaultDelegate
	sync.Mutex
	created   []int
	destroyed []int
	updates   chan time.Duration
}

func (d *recordingDelegate) OnInstanceCreated(inst *Instance) {
	d.Lock()
	d.created = append(d.created, inst.ID())
	d.Unlock()
}

func (d *recordingDelegate) OnInstanceDestroy(inst *Instance) {
	d.Lock()
	d.destroyed = append(d.destroyed, inst.ID())
	d.Unlock()
}

func (d *recordingDelegate) OnInstanceUpdate(inst *Instance, now time.Time, dt time.Duration) {
	if d.updates != nil {
		select {
		case d.updates <- dt:
		default:
		}
	}
}

func TestCreateInstance(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), testMaps())
	d := &recordingDelegate{}
	s.SetDelegate(d)
	var createdByCallback []*Instance
	s.OnInstanceCreated(func(inst *Instance) {
		createdByCallback = append(createdByCallback, inst)
	})

	a, err := s.CreateInstance(1)
	assert.Equal(t, nil, err)
	b, err := s.CreateInstance(2)
	assert.Equal(t, nil, err)
	a2, err := s.CreateInstance(1)
	assert.Equal(t, nil, err)

	assert.Equal(t, 1, a.MapID())
	assert.Equal(t, 2, b.MapID())
	assert.T(t, a.ID() != a2.ID())
	assert.Equal(t, []int{a.ID(), b.ID(), a2.ID()}, d.created)
	assert.Equal(t, []*Instance{a, b, a2}, createdByCallback)

	assert.Equal(t, a, s.GetInstanceByID(a.ID()))
	assert.Equal(t, b, s.GetInstanceByID(b.ID()))
	assert.T(t, s.GetInstanceByID(100) == nil)
	assert.Equal(t, a, s.GetInstanceByMap(1))
	assert.Equal(t, b, s.GetInstanceByMap(2))
	assert.T(t, s.GetInstanceByMap(9) == nil)
	assert.Equal(t, 3, len(s.Instances()))

	_, err = s.CreateInstance(9)
	assert.Equal(t, ErrMapNotFound, errors.Cause(err))
	_, err = s.CreateInstance(3)
	assert.Equal(t, aoi.ErrInvalidShapeBounds, errors.Cause(err))
	assert.Equal(t, 3, len(s.Instances()))
}

func TestPanickingDelegate(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), testMaps())
	s.OnInstanceCreated(func(inst *Instance) {
		panic("bad delegate")
	})
	inst, err := s.CreateInstance(1)
	assert.Equal(t, nil, err)
	assert.Equal(t, inst, s.GetInstanceByID(inst.ID()))
}

func TestInstanceIsolation(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), testMaps())
	a, _ := s.CreateInstance(1)
	b, _ := s.CreateInstance(2)
	assert.T(t, a.Index() != b.Index())

	e := newTestEntity(10, 10)
	a.AddEntity(e)

	everywhere := aoi.Circle{X: 0, Z: 0, Radius: 1000}
	var foundInA, foundInB []aoi.Entity
	a.FindEntities(everywhere, func(e aoi.Entity) bool {
		foundInA = append(foundInA, e)
		return true
	})
	b.FindEntities(everywhere, func(e aoi.Entity) bool {
		foundInB = append(foundInB, e)
		return true
	})
	assert.Equal(t, []aoi.Entity{e}, foundInA)
	assert.Equal(t, 0, len(foundInB))
	assert.T(t, !b.Index().Contains(e))

	// a watcher in b never hears about entities of a
	events := 0
	w := b.WatchArea(everywhere, func(aoi.Entity, bool) bool {
		events++
		return true
	})
	assert.Equal(t, nil, w.Start())
	prev := e.pos
	e.pos = aoi.Vector3{X: 20, Z: 20}
	a.MoveEntity(e, prev)
	a.RemoveEntity(e)
	assert.Equal(t, 0, events)

	// the same entity may live in b after leaving a
	b.AddEntity(e)
	assert.Equal(t, 1, events)
}

func TestInstanceInvariantPanics(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), testMaps())
	inst, _ := s.CreateInstance(1)
	e := newTestEntity(1, 1)
	inst.AddEntity(e)
	assert.T(t, gwutils.CatchPanic(func() { inst.AddEntity(e) }) != nil)
	inst.RemoveEntity(e)
	assert.T(t, gwutils.CatchPanic(func() { inst.RemoveEntity(e) }) != nil)
	assert.T(t, gwutils.CatchPanic(func() { inst.MoveEntity(e, aoi.Vector3{}) }) != nil)
}

func TestUpdateInstances(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), testMaps())
	d := &recordingDelegate{updates: make(chan time.Duration, 10)}
	s.SetDelegate(d)
	a, _ := s.CreateInstance(1)
	b, _ := s.CreateInstance(2)

	now := time.Now().Add(time.Second)
	s.updateInstances(now)
	assert.Equal(t, uint64(1), a.TickCount())
	assert.Equal(t, uint64(1), b.TickCount())
	assert.Equal(t, 2, len(d.updates))
	assert.T(t, <-d.updates >= time.Second)
	<-d.updates

	assert.T(t, s.DestroyInstance(b.ID()))
	assert.T(t, !s.DestroyInstance(b.ID()))
	assert.T(t, b.IsDestroyed())
	assert.Equal(t, []int{b.ID()}, d.destroyed)
	assert.T(t, s.GetInstanceByID(b.ID()) == nil)

	s.updateInstances(now.Add(time.Millisecond * 30))
	assert.Equal(t, uint64(2), a.TickCount())
	assert.Equal(t, uint64(1), b.TickCount())
	assert.Equal(t, time.Millisecond*30, <-d.updates)
	assert.Equal(t, uint64(2), s.TickCount())
}

func TestRunAndTerminate(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), testMaps())
	d := &recordingDelegate{updates: make(chan time.Duration, 100)}
	s.SetDelegate(d)
	inst, _ := s.CreateInstance(1)
	e := newTestEntity(50, 50)

	s.Start()
	assert.T(t, s.IsRunning())
	// spatial mutation goes through the scheduler goroutine
	added := make(chan bool, 1)
	s.Post(func() {
		inst.AddEntity(e)
		added <- inst.Index().Contains(e)
	})
	assert.T(t, <-added)

	for i := 0; i < 3; i++ {
		select {
		case dt := <-d.updates:
			assert.T(t, dt > 0)
			// read from the test goroutine while the scheduler is running
			assert.T(t, s.TickCount() >= uint64(i))
		case <-time.After(time.Second * 5):
			t.Fatalf("instance not updated")
		}
	}

	s.Terminate()
	s.WaitTerminated()
	assert.T(t, !s.IsRunning())
	ticks := s.TickCount()
	assert.T(t, ticks >= 3)
	assert.Equal(t, ticks, inst.TickCount())
}

func TestRunContextCancel(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), testMaps())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(time.Millisecond * 20)
	ran := make(chan bool, 1)
	s.Post(func() { ran <- true })
	cancel()
	s.WaitTerminated()
	<-done

	// posts not yet run when cancelled are run on termination
	select {
	case <-ran:
	default:
		t.Errorf("posted callback lost on termination")
	}
	assert.T(t, !s.IsRunning())
}

func TestTerminateBeforeStart(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), testMaps())
	s.Terminate()
	s.WaitTerminated()
	assert.T(t, gwutils.CatchPanic(s.Start) != nil)
}
