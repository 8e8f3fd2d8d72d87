package presence

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/models"
)

func (p *Presence) loadCache() error {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAvailability),
	)

	var devices []models.Device
	if err := p.Db.Conn.Find(&devices).Error; err != nil {
		logger.Error("Failed to load devices into cache", zap.Error(err))
		return err
	}

	now := time.Now()
	for _, d := range devices {
		p.Cache.Put(d.DeviceID, Entry{
			Status:          d.Status,
			LastUpdate:      d.LastUpdate,
			LastMessageTime: now,
		})
	}

	logger.Info("Loaded devices into cache", zap.Int("count", len(devices)))
	return nil
}

// persistStatus upserts the device row, touching only status and
// last_update so a provisioned name survives.
func (p *Presence) persistStatus(deviceID string, status models.DeviceStatus, now time.Time) error {
	device := models.Device{DeviceID: deviceID, Status: status, LastUpdate: now}
	return p.Db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_update"}),
	}).Create(&device).Error
}

func (p *Presence) handleAvailability(deviceID string, payload string, now time.Time) error {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAvailability),
	)

	target := models.StatusOnline
	if payload == "maintenance" {
		target = models.StatusMaintenance
	}
	// "alive" and any unrecognized payload both mean ONLINE

	le := p.Cache.Acquire(deviceID)
	defer le.Release()

	cached, known := le.Get()
	statusChanged := !known || cached.Status != target
	needsRevalidation := !known || now.Sub(cached.LastMessageTime) >= p.Cfg.RevalidationWindow

	if target == models.StatusMaintenance || statusChanged || needsRevalidation {
		reason := "revalidation"
		if statusChanged {
			reason = "changed"
		} else if target == models.StatusMaintenance {
			reason = "forced_maintenance"
		}

		if err := p.appendLog(deviceID, models.MessageTypeAvailability, payload, now); err != nil {
			logger.Error("Failed to append availability log entry",
				zap.String("device_id", deviceID), zap.Error(err))
		}
		if err := p.persistStatus(deviceID, target, now); err != nil {
			// cache is still refreshed below
			logger.Error("Failed to persist device status",
				zap.String("device_id", deviceID), zap.Error(err))
		} else {
			logger.Info("Device status updated",
				zap.String("device_id", deviceID),
				zap.String("status", string(target)),
				zap.String("reason", reason))
		}
	} else {
		logger.Info("No status update needed",
			zap.String("device_id", deviceID),
			zap.String("status", string(target)))
	}

	le.Set(Entry{Status: target, LastUpdate: now, LastMessageTime: now})
	return nil
}

func (p *Presence) handleHeartbeat(deviceID string, payload string, now time.Time) error {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryHeartbeat),
	)

	le := p.Cache.Acquire(deviceID)
	defer le.Release()

	cached, known := le.Get()

	// MAINTENANCE is only cleared by an explicit availability event, never
	// by a bare heartbeat. The cache entry is left untouched as well.
	if known && cached.Status == models.StatusMaintenance {
		logger.Info("Device in maintenance, heartbeat ignored",
			zap.String("device_id", deviceID))
		return nil
	}

	statusChanged := !known || cached.Status != models.StatusOnline
	needsRevalidation := !known || now.Sub(cached.LastMessageTime) >= p.Cfg.RevalidationWindow

	if statusChanged || needsRevalidation {
		// revalidation refreshes the persisted status but is not an event
		// worth auditing; only real transitions get a log entry
		if statusChanged {
			if err := p.appendLog(deviceID, models.MessageTypeHeartbeat, payload, now); err != nil {
				logger.Error("Failed to append heartbeat log entry",
					zap.String("device_id", deviceID), zap.Error(err))
			}
		}
		if err := p.persistStatus(deviceID, models.StatusOnline, now); err != nil {
			logger.Error("Failed to persist device status",
				zap.String("device_id", deviceID), zap.Error(err))
		} else {
			reason := "revalidation"
			if statusChanged {
				reason = "changed"
			}
			logger.Info("Device status updated",
				zap.String("device_id", deviceID),
				zap.String("status", string(models.StatusOnline)),
				zap.String("reason", reason))
		}
	} else {
		logger.Info("No status update needed", zap.String("device_id", deviceID))
	}

	le.Set(Entry{Status: models.StatusOnline, LastUpdate: now, LastMessageTime: now})
	return nil
}

type ITrackerImpl struct {
	presence *Presence
}

func (it *ITrackerImpl) LoadCache() error {
	return it.presence.loadCache()
}

func (it *ITrackerImpl) HandleAvailability(deviceID string, payload string, now time.Time) error {
	return it.presence.handleAvailability(deviceID, payload, now)
}

func (it *ITrackerImpl) HandleHeartbeat(deviceID string, payload string, now time.Time) error {
	return it.presence.handleHeartbeat(deviceID, payload, now)
}

func (p *Presence) GetITracker() ITracker {
	return &ITrackerImpl{presence: p}
}
