package presence

import (
	"time"

	"liyu1981.xyz/iot-presence-service/pkg/common"
)

// Config holds the timing tunables of the core. RevalidationWindow and
// DedupWindow share a default but govern distinct concerns (status
// staleness vs. alert noise) and are tunable independently.
type Config struct {
	RevalidationWindow time.Duration
	DedupWindow        time.Duration
	SweepInterval      time.Duration
	OfflineThreshold   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RevalidationWindow: 2 * time.Minute,
		DedupWindow:        2 * time.Minute,
		SweepInterval:      1 * time.Minute,
		OfflineThreshold:   2 * time.Minute,
	}
}

func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		RevalidationWindow: common.DurationFromEnv(common.EnvKeyIOTRevalidationWindow, def.RevalidationWindow),
		DedupWindow:        common.DurationFromEnv(common.EnvKeyIOTDedupWindow, def.DedupWindow),
		SweepInterval:      common.DurationFromEnv(common.EnvKeyIOTSweepInterval, def.SweepInterval),
		OfflineThreshold:   common.DurationFromEnv(common.EnvKeyIOTOfflineThreshold, def.OfflineThreshold),
	}
}
