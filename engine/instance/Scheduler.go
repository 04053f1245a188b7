package instance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/tilespace/engine/config"
	"github.com/xiaonanln/tilespace/engine/consts"
	"github.com/xiaonanln/tilespace/engine/gwlog"
	"github.com/xiaonanln/tilespace/engine/gwutils"
	"github.com/xiaonanln/tilespace/engine/gwvar"
	"github.com/xiaonanln/tilespace/engine/opmon"
	"github.com/xiaonanln/tilespace/engine/post"
)

const (
	rsNotRunning = iota
	rsRunning
	rsTerminating
	rsTerminated
)

// ErrMapNotFound is returned when creating an instance of a map that is not configured
var ErrMapNotFound = errors.New("map not found")

// Scheduler owns the live instances and updates each of them once per tick
//
// Instance registry methods are safe to call from any goroutine. Instances themselves are
// updated on the goroutine calling Run, and only one Scheduler may Run at a time in a process
// since the timers are process wide.
type Scheduler struct {
	cfg  *config.SchedulerConfig
	maps map[int]*config.MapConfig

	lock             sync.Mutex
	delegate         Delegate
	createdCallbacks []func(inst *Instance)
	instances        []*Instance
	nextID           int

	postQueue  *post.Queue
	runState   xnsyncutil.AtomicInt
	terminated *xnsyncutil.OneTimeCond
	tickTimer  *timer.Timer
	dumpTimer  *timer.Timer
	tickCount  xnsyncutil.AtomicInt64
}

// NewScheduler creates a scheduler creating instances of the given maps
func NewScheduler(cfg *config.SchedulerConfig, maps map[int]*config.MapConfig) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		maps:       maps,
		delegate:   DefaultDelegate{},
		nextID:     1,
		postQueue:  post.NewQueue(),
		terminated: xnsyncutil.NewOneTimeCond(),
	}
}

func (s *Scheduler) String() string {
	return fmt.Sprintf("Scheduler<%s>", s.cfg.TickInterval)
}

// SetDelegate sets the delegate receiving instance events
func (s *Scheduler) SetDelegate(delegate Delegate) {
	if delegate == nil {
		delegate = DefaultDelegate{}
	}
	s.lock.Lock()
	s.delegate = delegate
	s.lock.Unlock()
}

func (s *Scheduler) getDelegate() Delegate {
	s.lock.Lock()
	d := s.delegate
	s.lock.Unlock()
	return d
}

// OnInstanceCreated adds a callback called after every instance creation
func (s *Scheduler) OnInstanceCreated(cb func(inst *Instance)) {
	s.lock.Lock()
	s.createdCallbacks = append(s.createdCallbacks, cb)
	s.lock.Unlock()
}

// CreateInstance creates a new instance of map mapID
func (s *Scheduler) CreateInstance(mapID int) (*Instance, error) {
	mc := s.maps[mapID]
	if mc == nil {
		return nil, errors.Wrapf(ErrMapNotFound, "map%d", mapID)
	}

	s.lock.Lock()
	inst, err := newInstance(s.nextID, mc, time.Now())
	if err != nil {
		s.lock.Unlock()
		return nil, errors.Wrapf(err, "create instance of map%d", mapID)
	}
	s.nextID += 1
	s.instances = append(s.instances, inst)
	gwvar.InstanceCount.Add(1)
	delegate := s.delegate
	callbacks := append(([]func(*Instance))(nil), s.createdCallbacks...)
	s.lock.Unlock()

	if consts.DEBUG_INSTANCES {
		gwlog.Debugf("%s: %s created", s, inst)
	}
	gwutils.RunPanicless(func() {
		delegate.OnInstanceCreated(inst)
	})
	for _, cb := range callbacks {
		cb := cb
		gwutils.RunPanicless(func() {
			cb(inst)
		})
	}
	return inst, nil
}

// GetInstanceByID returns the instance of id, or nil
func (s *Scheduler) GetInstanceByID(id int) *Instance {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, inst := range s.instances {
		if inst.id == id {
			return inst
		}
	}
	return nil
}

// GetInstanceByMap returns the oldest instance of map mapID, or nil
func (s *Scheduler) GetInstanceByMap(mapID int) *Instance {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, inst := range s.instances {
		if inst.MapID() == mapID {
			return inst
		}
	}
	return nil
}

// Instances returns all live instances in creation order
func (s *Scheduler) Instances() []*Instance {
	s.lock.Lock()
	instances := append([]*Instance(nil), s.instances...)
	s.lock.Unlock()
	return instances
}

// DestroyInstance unregisters the instance of id. The instance is not updated afterwards.
func (s *Scheduler) DestroyInstance(id int) bool {
	s.lock.Lock()
	var inst *Instance
	for i, _inst := range s.instances {
		if _inst.id == id {
			inst = _inst
			s.instances = append(s.instances[:i], s.instances[i+1:]...)
			gwvar.InstanceCount.Add(-1)
			break
		}
	}
	delegate := s.delegate
	s.lock.Unlock()

	if inst == nil {
		return false
	}
	inst.destroyed.Store(true)
	if consts.DEBUG_INSTANCES {
		gwlog.Debugf("%s: %s destroyed", s, inst)
	}
	gwutils.RunPanicless(func() {
		delegate.OnInstanceDestroy(inst)
	})
	return true
}

// Post a callback to run on the scheduler goroutine
func (s *Scheduler) Post(f post.PostCallback) {
	s.postQueue.Post(f)
}

// TickCount returns the number of finished update passes
func (s *Scheduler) TickCount() uint64 {
	return uint64(s.tickCount.Load())
}

// Start runs the scheduler in a new goroutine
func (s *Scheduler) Start() {
	s.setRunning()
	go s.serveRoutine(context.Background())
}

// Run ticks timers and updates instances until ctx is done or Terminate is called
func (s *Scheduler) Run(ctx context.Context) {
	s.setRunning()
	s.serveRoutine(ctx)
}

func (s *Scheduler) setRunning() {
	if s.runState.Load() != rsNotRunning {
		gwlog.Panicf("%s: already started", s)
	}
	s.runState.Store(rsRunning)
	gwvar.IsSchedulerRunning.Set(true)
}

func (s *Scheduler) serveRoutine(ctx context.Context) {
	gwlog.Infof("%s started: timer resolution %s", s, s.cfg.TimerResolution)

	s.tickTimer = timer.AddCallback(s.cfg.TickInterval, s.onTick)
	if s.cfg.OpmonDumpInterval > 0 {
		s.dumpTimer = opmon.StartDumpTimer(s.cfg.OpmonDumpInterval)
	}

	ticker := time.NewTicker(s.cfg.TimerResolution)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.runState.Store(rsTerminating)
		case <-ticker.C:
		}

		if s.runState.Load() == rsTerminating {
			s.doTerminate()
			return
		}

		timer.Tick()
		// after firing timers, check the posted functions
		op := opmon.StartOperation("Scheduler.PostTick")
		s.postQueue.Tick()
		op.Finish(consts.POSTED_CALLBACK_WARN_THRESHOLD)
	}
}

func (s *Scheduler) onTick() {
	if s.runState.Load() != rsRunning {
		return
	}
	s.updateInstances(time.Now())
	// schedule after the pass so that passes never overlap
	s.tickTimer = timer.AddCallback(s.cfg.TickInterval, s.onTick)
}

func (s *Scheduler) updateInstances(now time.Time) {
	delegate := s.getDelegate()
	for _, inst := range s.Instances() {
		if inst.IsDestroyed() {
			continue
		}
		dt := now.Sub(inst.lastUpdate)
		op := opmon.StartOperation("Instance.Update")
		inst.Update(now, dt)
		gwutils.RunPanicless(func() {
			delegate.OnInstanceUpdate(inst, now, dt)
		})
		op.Finish(s.cfg.UpdateWarnThreshold)
	}
	s.tickCount.Add(1)
	gwvar.TickCount.Add(1)
}

func (s *Scheduler) doTerminate() {
	if s.tickTimer != nil {
		s.tickTimer.Cancel()
	}
	if s.dumpTimer != nil {
		s.dumpTimer.Cancel()
	}
	// run posts left behind
	s.postQueue.Tick()
	gwlog.Infof("%s terminated after %d ticks", s, s.TickCount())
	s.runState.Store(rsTerminated)
	gwvar.IsSchedulerRunning.Set(false)
	s.terminated.Signal()
}

// Terminate stops the scheduler. The update pass in progress is allowed to complete.
func (s *Scheduler) Terminate() {
	switch s.runState.Load() {
	case rsNotRunning:
		s.runState.Store(rsTerminated)
		s.terminated.Signal()
	case rsRunning:
		s.runState.Store(rsTerminating)
	}
}

// IsRunning returns true between Run and termination
func (s *Scheduler) IsRunning() bool {
	return s.runState.Load() == rsRunning
}

// WaitTerminated blocks until the scheduler is terminated
func (s *Scheduler) WaitTerminated() {
	s.terminated.Wait()
}
