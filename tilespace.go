package tilespace

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/xiaonanln/tilespace/engine/aoi"
	"github.com/xiaonanln/tilespace/engine/binutil"
	"github.com/xiaonanln/tilespace/engine/config"
	"github.com/xiaonanln/tilespace/engine/gwlog"
	"github.com/xiaonanln/tilespace/engine/instance"
	"github.com/xiaonanln/tilespace/engine/post"
)

// Instance is one simulated copy of a map
type Instance = instance.Instance

// Delegate receives instance life cycle events
type Delegate = instance.Delegate

// Entity is anything tracked by instances
type Entity = aoi.Entity

var (
	scheduler     *instance.Scheduler
	schedulerOnce sync.Once
)

func getScheduler() *instance.Scheduler {
	schedulerOnce.Do(func() {
		cfg := config.Get()
		scheduler = instance.NewScheduler(&cfg.Scheduler, cfg.Maps)
	})
	return scheduler
}

// SetConfigFile sets the config file path, must be called before everything else
func SetConfigFile(f string) {
	config.SetConfigFile(f)
}

// SetDelegate sets the delegate of instances
func SetDelegate(delegate Delegate) {
	getScheduler().SetDelegate(delegate)
}

// CreateInstance creates an instance of map mapID
func CreateInstance(mapID int) (*Instance, error) {
	return getScheduler().CreateInstance(mapID)
}

// GetInstanceByID returns the instance of id, or nil
func GetInstanceByID(id int) *Instance {
	return getScheduler().GetInstanceByID(id)
}

// GetInstanceByMap returns the first instance of map mapID, or nil
func GetInstanceByMap(mapID int) *Instance {
	return getScheduler().GetInstanceByMap(mapID)
}

// DestroyInstance destroys the instance of id
func DestroyInstance(id int) bool {
	return getScheduler().DestroyInstance(id)
}

// Post a callback to run on the scheduler goroutine, where instances can be touched safely
func Post(f post.PostCallback) {
	getScheduler().Post(f)
}

// Run sets up logging and pprof from config, then runs the scheduler until SIGINT or SIGTERM
func Run() {
	cfg := config.GetScheduler()
	binutil.SetupGWLog("tilespace", cfg.LogLevel, cfg.LogFile, cfg.LogStderr)
	binutil.SetupHTTPServer(cfg.HTTPIp, cfg.HTTPPort)
	gwlog.Infof("Read scheduler config: \n%s\n", config.DumpPretty(cfg))

	s := getScheduler()
	setupSignals(s)
	s.Run(context.Background())
	gwlog.Infof("tilespace terminated gracefully.")
	gwlog.Sync()
}

func setupSignals(s *instance.Scheduler) {
	signalChan := make(chan os.Signal, 1)
	signal.Ignore(syscall.SIGPIPE, syscall.SIGHUP)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signalChan
		gwlog.Infof("Received %s, terminating ...", sig)
		s.Terminate()
	}()
}
