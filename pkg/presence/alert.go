package presence

import (
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/models"
)

// recentLogScanLimit bounds the dedup lookback query; within the dedup
// window a device cannot have produced more accepted events than this.
const recentLogScanLimit = 50

func (p *Presence) lastAlertTime(deviceID string) time.Time {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAlert),
	)

	var recent []models.MessageLog
	if err := p.Db.Conn.
		Where("device_id = ?", deviceID).
		Order("timestamp desc").
		Limit(recentLogScanLimit).
		Find(&recent).Error; err != nil {
		// read failure degrades to "no prior alert"
		logger.Error("Failed to query recent messages",
			zap.String("device_id", deviceID), zap.Error(err))
		return time.Time{}
	}

	var last time.Time
	for _, m := range recent {
		if m.Type == models.MessageTypeAlert && m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	return last
}

func (p *Presence) handleAlert(deviceID string, payload string, now time.Time) error {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAlert),
	)

	if last := p.lastAlertTime(deviceID); !last.IsZero() && now.Sub(last) < p.Cfg.DedupWindow {
		logger.Info("Alert suppressed within dedup window",
			zap.String("device_id", deviceID),
			zap.Duration("since_last", now.Sub(last)))
		return nil
	}

	if err := p.appendLog(deviceID, models.MessageTypeAlert, payload, now); err != nil {
		logger.Error("Failed to append alert log entry",
			zap.String("device_id", deviceID), zap.Error(err))
	}
	logger.Info("Alert accepted", zap.String("device_id", deviceID))

	owners, err := p.Owners.FindOwners(deviceID)
	if err != nil {
		// the alert is already logged; dedup bookkeeping stands
		logger.Error("Failed to resolve owners",
			zap.String("device_id", deviceID), zap.Error(err))
		return nil
	}
	if len(owners) == 0 {
		logger.Info("No owners found for device", zap.String("device_id", deviceID))
		return nil
	}

	alert := ParseAlertPayload(payload)

	totalTargets := 0
	totalSent := 0
	for _, owner := range owners {
		result, err := p.Notifier.Notify(owner, deviceID, alert)
		if err != nil {
			logger.Error("Fanout failed for user",
				zap.String("user_id", owner.UserID), zap.Error(err))
			continue
		}
		totalTargets += result.TotalTokens
		totalSent += result.Successful
	}

	logger.Info("Alert fanout complete",
		zap.String("device_id", deviceID),
		zap.Int("owners", len(owners)),
		zap.Int("targets", totalTargets),
		zap.Int("successful", totalSent))
	return nil
}

type IAlertsImpl struct {
	presence *Presence
}

func (ia *IAlertsImpl) HandleAlert(deviceID string, payload string, now time.Time) error {
	return ia.presence.handleAlert(deviceID, payload, now)
}

func (p *Presence) GetIAlerts() IAlerts {
	return &IAlertsImpl{presence: p}
}
