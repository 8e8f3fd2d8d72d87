package presence

import (
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/models"
)

func (p *Presence) appendLog(deviceID string, msgType string, payload string, now time.Time) error {
	entry := models.MessageLog{
		DeviceID:  deviceID,
		Type:      msgType,
		Payload:   payload,
		Timestamp: now,
	}
	return p.Db.Conn.Create(&entry).Error
}

// LogMessage records an event verbatim with no further processing; used for
// query messages and any unrecognized type.
func (p *Presence) LogMessage(deviceID string, msgType string, payload string, now time.Time) error {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryMessageLog),
	)

	if err := p.appendLog(deviceID, msgType, payload, now); err != nil {
		logger.Error("Failed to append log entry",
			zap.String("device_id", deviceID),
			zap.String("type", msgType),
			zap.Error(err))
		return err
	}

	logger.Info("Message logged",
		zap.String("device_id", deviceID),
		zap.String("type", msgType))
	return nil
}
