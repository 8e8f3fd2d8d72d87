package presence

import (
	"context"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/models"
)

// RunSweeper demotes stale devices to OFFLINE on a fixed period until the
// context is cancelled. It shares the store and cache with the live event
// path without further coordination; both converge to the same state class.
func (p *Presence) RunSweeper(ctx context.Context) {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategorySweep),
	)

	ticker := time.NewTicker(p.Cfg.SweepInterval)
	defer ticker.Stop()

	logger.Info("Offline sweeper started",
		zap.Duration("interval", p.Cfg.SweepInterval),
		zap.Duration("threshold", p.Cfg.OfflineThreshold))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Offline sweeper stopped")
			return
		case <-ticker.C:
			if _, err := p.SweepOnce(time.Now()); err != nil {
				logger.Error("Sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce marks every device whose last update predates the offline
// threshold as OFFLINE, skipping devices already OFFLINE or in MAINTENANCE.
// Devices are processed independently; one failure does not stop the rest.
// Returns the number of devices demoted.
func (p *Presence) SweepOnce(now time.Time) (int, error) {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategorySweep),
	)

	var devices []models.Device
	if err := p.Db.Conn.Find(&devices).Error; err != nil {
		return 0, err
	}

	cutoff := now.Add(-p.Cfg.OfflineThreshold)

	swept := 0
	for _, d := range devices {
		if d.LastUpdate.IsZero() || !d.LastUpdate.Before(cutoff) {
			continue
		}
		if d.Status == models.StatusOffline || d.Status == models.StatusMaintenance {
			continue
		}

		le := p.Cache.Acquire(d.DeviceID)

		if err := p.appendLog(d.DeviceID, models.MessageTypeOffline, "timeout", now); err != nil {
			logger.Error("Failed to append offline log entry",
				zap.String("device_id", d.DeviceID), zap.Error(err))
		}
		if err := p.persistStatus(d.DeviceID, models.StatusOffline, now); err != nil {
			logger.Error("Failed to mark device offline",
				zap.String("device_id", d.DeviceID), zap.Error(err))
			le.Release()
			continue
		}
		le.Set(Entry{Status: models.StatusOffline, LastUpdate: now, LastMessageTime: now})
		le.Release()

		swept++
		logger.Info("Marked device offline", zap.String("device_id", d.DeviceID))
	}

	if swept > 0 {
		logger.Info("Sweep complete", zap.Int("count", swept))
	}
	return swept, nil
}
