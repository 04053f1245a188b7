package config

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"github.com/xiaonanln/tilespace/engine/consts"
	"github.com/xiaonanln/tilespace/engine/gwlog"
)

const (
	_DEFAULT_CONFIG_FILE = "tilespace.ini"
	_DEFAULT_HTTP_IP     = "127.0.0.1"
	_DEFAULT_LOG_LEVEL   = "debug"
	_DEFAULT_MAP_EXTENT  = 1000
)

var (
	configFilePath  = _DEFAULT_CONFIG_FILE
	tileSpaceConfig *TileSpaceConfig
	configLock      sync.Mutex
)

// SchedulerConfig defines fields of scheduler config
type SchedulerConfig struct {
	TickInterval        time.Duration
	TimerResolution     time.Duration
	UpdateWarnThreshold time.Duration
	OpmonDumpInterval   time.Duration
	LogFile             string
	LogStderr           bool
	LogLevel            string
	HTTPIp              string
	HTTPPort            int
}

// MapConfig defines the world extents and tile width of one map
type MapConfig struct {
	ID        int
	Name      string
	TileWidth float64
	MinX      float64
	MinZ      float64
	MaxX      float64
	MaxZ      float64
}

// TileSpaceConfig defines the total config file structure
type TileSpaceConfig struct {
	Scheduler SchedulerConfig
	MapCommon MapConfig
	Maps      map[int]*MapConfig
}

// SetConfigFile sets the config file path (tilespace.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// GetConfigDir returns the directory of the config file
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total config, reading the config file on first call
func Get() *TileSpaceConfig {
	configLock.Lock()
	defer configLock.Unlock() // protect concurrent access from request handlers
	if tileSpaceConfig == nil {
		gwlog.Infof("Using config file: %s", configFilePath)
		cfg, err := Load(configFilePath)
		checkConfigError(err, "")
		tileSpaceConfig = cfg
	}
	return tileSpaceConfig
}

// Reload forces the config file to be read again
func Reload() *TileSpaceConfig {
	configLock.Lock()
	tileSpaceConfig = nil
	configLock.Unlock()

	return Get()
}

// GetScheduler returns the scheduler config
func GetScheduler() *SchedulerConfig {
	return &Get().Scheduler
}

// GetMap gets the config of specified map ID, or nil if not configured
func GetMap(mapid int) *MapConfig {
	return Get().Maps[mapid]
}

// GetMapIDs returns all map IDs in ascending order
func GetMapIDs() []int {
	cfg := Get()
	mapIDs := make([]int, 0, len(cfg.Maps))
	for id := range cfg.Maps {
		mapIDs = append(mapIDs, id)
	}
	sort.Ints(mapIDs)
	return mapIDs
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

// Load reads and validates the config file at configPath
func Load(configPath string) (*TileSpaceConfig, error) {
	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", configPath)
	}
	return readTileSpaceConfig(iniFile)
}

func readTileSpaceConfig(iniFile *ini.File) (*TileSpaceConfig, error) {
	config := TileSpaceConfig{
		Maps: map[int]*MapConfig{},
	}
	if err := readSchedulerConfig(iniFile.Section("scheduler"), &config.Scheduler); err != nil {
		return nil, err
	}
	if err := readMapCommonConfig(iniFile.Section("map_common"), &config.MapCommon); err != nil {
		return nil, err
	}

	for _, sec := range iniFile.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		secName := strings.ToLower(sec.Name())
		if secName == "scheduler" || secName == "map_common" {
			continue
		}

		if len(secName) > 3 && secName[:3] == "map" {
			id, err := strconv.Atoi(secName[3:])
			if err != nil {
				return nil, errors.Errorf("invalid map name: %s", secName)
			}
			mc, err := readMapConfig(sec, &config.MapCommon)
			if err != nil {
				return nil, err
			}
			mc.ID = id
			config.Maps[id] = mc
		} else {
			gwlog.Errorf("unknown section: %s", secName)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func readSchedulerConfig(sec *ini.Section, sc *SchedulerConfig) error {
	sc.TickInterval = consts.INSTANCE_TICK_INTERVAL
	sc.TimerResolution = consts.SCHEDULER_TIMER_RESOLUTION
	sc.UpdateWarnThreshold = consts.INSTANCE_UPDATE_WARN_THRESHOLD
	sc.OpmonDumpInterval = consts.OPMON_DUMP_INTERVAL
	sc.LogFile = "tilespace.log"
	sc.LogStderr = true
	sc.LogLevel = _DEFAULT_LOG_LEVEL
	sc.HTTPIp = _DEFAULT_HTTP_IP
	sc.HTTPPort = 0 // pprof not enabled by default

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "tick_interval_ms" {
			sc.TickInterval = time.Millisecond * time.Duration(key.MustInt(int(sc.TickInterval/time.Millisecond)))
		} else if name == "timer_resolution_ms" {
			sc.TimerResolution = time.Millisecond * time.Duration(key.MustInt(int(sc.TimerResolution/time.Millisecond)))
		} else if name == "update_warn_threshold_ms" {
			sc.UpdateWarnThreshold = time.Millisecond * time.Duration(key.MustInt(int(sc.UpdateWarnThreshold/time.Millisecond)))
		} else if name == "opmon_dump_interval" {
			sc.OpmonDumpInterval = time.Second * time.Duration(key.MustInt(int(sc.OpmonDumpInterval/time.Second)))
		} else if name == "log_file" {
			sc.LogFile = key.MustString(sc.LogFile)
		} else if name == "log_stderr" {
			sc.LogStderr = key.MustBool(sc.LogStderr)
		} else if name == "log_level" {
			sc.LogLevel = key.MustString(sc.LogLevel)
		} else if name == "http_ip" {
			sc.HTTPIp = key.MustString(sc.HTTPIp)
		} else if name == "http_port" {
			sc.HTTPPort = key.MustInt(sc.HTTPPort)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func readMapCommonConfig(sec *ini.Section, mc *MapConfig) error {
	mc.TileWidth = consts.DEFAULT_TILE_WIDTH
	mc.MinX, mc.MinZ = 0, 0
	mc.MaxX, mc.MaxZ = _DEFAULT_MAP_EXTENT, _DEFAULT_MAP_EXTENT

	return _readMapConfig(sec, mc)
}

func readMapConfig(sec *ini.Section, mapCommonConfig *MapConfig) (*MapConfig, error) {
	mc := *mapCommonConfig // copy from map_common
	if err := _readMapConfig(sec, &mc); err != nil {
		return nil, err
	}
	if mc.Name == "" {
		mc.Name = sec.Name()
	}
	return &mc, nil
}

func _readMapConfig(sec *ini.Section, mc *MapConfig) error {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "name" {
			mc.Name = key.MustString(mc.Name)
		} else if name == "tile_width" {
			mc.TileWidth = key.MustFloat64(mc.TileWidth)
		} else if name == "min_x" {
			mc.MinX = key.MustFloat64(mc.MinX)
		} else if name == "min_z" {
			mc.MinZ = key.MustFloat64(mc.MinZ)
		} else if name == "max_x" {
			mc.MaxX = key.MustFloat64(mc.MaxX)
		} else if name == "max_z" {
			mc.MaxZ = key.MustFloat64(mc.MaxZ)
		} else {
			return errors.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	return nil
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		gwlog.Panicf("read config error: %s", msg)
	}
}

func validateConfig(config *TileSpaceConfig) error {
	sc := &config.Scheduler
	if sc.TickInterval <= 0 {
		return errors.Errorf("tick_interval_ms must be positive: %s", sc.TickInterval)
	}
	if sc.TimerResolution <= 0 || sc.TimerResolution > sc.TickInterval {
		return errors.Errorf("timer_resolution_ms must be in (0, %s]: %s", sc.TickInterval, sc.TimerResolution)
	}

	if len(config.Maps) == 0 {
		return errors.Errorf("map not found in config file, must has at least 1 map")
	}
	for mapid, mc := range config.Maps {
		if err := validateMapConfig(mc); err != nil {
			fmt.Fprintf(gwlog.GetOutput(), "%s\n", DumpPretty(mc))
			return errors.Wrapf(err, "map%d", mapid)
		}
	}
	return nil
}

func validateMapConfig(mc *MapConfig) error {
	if !(mc.TileWidth > 0) {
		return errors.Errorf("tile_width must be positive: %v", mc.TileWidth)
	}
	if !(mc.MaxX > mc.MinX) || !(mc.MaxZ > mc.MinZ) {
		return errors.Errorf("invalid extents (%v, %v) - (%v, %v)", mc.MinX, mc.MinZ, mc.MaxX, mc.MaxZ)
	}
	return nil
}
