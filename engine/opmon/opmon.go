package opmon

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/tilespace/engine/gwlog"
)

var (
	operationAllocPool = sync.Pool{
		New: func() interface{} {
			return &Operation{}
		},
	}

	monitor = newMonitor()
)

type _OpInfo struct {
	count         uint64
	totalDuration time.Duration
	maxDuration   time.Duration
}

// OpStat is the accumulated statistics of one operation name
type OpStat struct {
	Name  string
	Count uint64
	Avg   time.Duration
	Max   time.Duration
}

type _Monitor struct {
	sync.Mutex
	opInfos map[string]*_OpInfo
}

func newMonitor() *_Monitor {
	m := &_Monitor{
		opInfos: map[string]*_OpInfo{},
	}
	return m
}

func (monitor *_Monitor) record(opname string, duration time.Duration) {
	monitor.Lock()
	info := monitor.opInfos[opname]
	if info == nil {
		info = &_OpInfo{}
		monitor.opInfos[opname] = info
	}
	info.count += 1
	info.totalDuration += duration
	if duration > info.maxDuration {
		info.maxDuration = duration
	}
	monitor.Unlock()
}

// snapshot returns sorted stats, clearing them if reset is set
func (monitor *_Monitor) snapshot(reset bool) []OpStat {
	monitor.Lock()
	opInfos := monitor.opInfos
	if reset {
		monitor.opInfos = map[string]*_OpInfo{}
	}
	stats := make([]OpStat, 0, len(opInfos))
	for name, info := range opInfos {
		stats = append(stats, OpStat{
			Name:  name,
			Count: info.count,
			Avg:   info.totalDuration / time.Duration(info.count),
			Max:   info.maxDuration,
		})
	}
	monitor.Unlock()

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// Snapshot returns the statistics recorded since the last Dump
func Snapshot() []OpStat {
	return monitor.snapshot(false)
}

// Dump writes all statistics and the process cpu and memory usage to the log, then clears the statistics
func Dump() {
	stats := monitor.snapshot(true)

	var sb strings.Builder
	sb.WriteString("=====================================================================================\n")
	for _, st := range stats {
		fmt.Fprintf(&sb, "%-30sx%-10d AVG %-10s MAX %-10s\n", st.Name, st.Count, st.Avg, st.Max)
	}
	if cpu, rss, err := processUsage(); err == nil {
		fmt.Fprintf(&sb, "%-30sCPU %.1f%% RSS %dKB\n", "process", cpu, rss/1024)
	} else {
		gwlog.Warnf("opmon: read process usage failed: %v", err)
	}
	gwlog.Infof("opmon dump:\n%s", sb.String())
}

func processUsage() (cpuPercent float64, rss uint64, err error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	cpuPercent, err = p.CPUPercent()
	if err != nil {
		return
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return
	}
	rss = mem.RSS
	return
}

// StartDumpTimer dumps statistics every interval on the goroutine ticking goTimer
func StartDumpTimer(interval time.Duration) *timer.Timer {
	return timer.AddTimer(interval, Dump)
}

// Operation is the type of operation to be monitored
type Operation struct {
	name      string
	startTime time.Time
}

// StartOperation creates a new operation
func StartOperation(operationName string) *Operation {
	op := operationAllocPool.Get().(*Operation)
	op.name = operationName
	op.startTime = time.Now()
	return op
}

// Finish finishes the operation and records the duration of operation
func (op *Operation) Finish(warnThreshold time.Duration) time.Duration {
	takeTime := time.Since(op.startTime)
	monitor.record(op.name, takeTime)
	if takeTime >= warnThreshold {
		gwlog.Warnf("opmon: operation %s takes %s > %s", op.name, takeTime, warnThreshold)
	}
	operationAllocPool.Put(op)
	return takeTime
}
