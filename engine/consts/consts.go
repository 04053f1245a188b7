package consts

import "time"

// Tunable Options
const (
	// For Grid
	// DEFAULT_TILE_WIDTH is the tile width used when a map does not configure one
	DEFAULT_TILE_WIDTH = 50.0

	// For Scheduler
	// INSTANCE_TICK_INTERVAL is the period between two instance update passes
	INSTANCE_TICK_INTERVAL = time.Millisecond * 30
	// SCHEDULER_TIMER_RESOLUTION is the interval to tick timers in the scheduler loop
	SCHEDULER_TIMER_RESOLUTION = time.Millisecond * 5 // affects timer resolution
	// INSTANCE_UPDATE_WARN_THRESHOLD warns if a single instance update takes longer
	INSTANCE_UPDATE_WARN_THRESHOLD = time.Millisecond * 10
	// POSTED_CALLBACK_WARN_THRESHOLD warns if running posted callbacks takes longer
	POSTED_CALLBACK_WARN_THRESHOLD = time.Millisecond * 10

	// For Operation Monitor
	// OPMON_DUMP_INTERVAL is the interval to print opmon infos to output
	OPMON_DUMP_INTERVAL = 0
)

// Debug Options
const (
	// DEBUG_AOI prints watcher transition and tile subscription debug logs
	DEBUG_AOI = false
	// DEBUG_INSTANCES prints instance create/destroy and tick debug logs
	DEBUG_INSTANCES = false
)
