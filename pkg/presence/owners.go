package presence

import (
	"go.uber.org/zap"
	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/models"
)

// Owner is one user registered for a device, with the display name that
// should headline their notifications and their active push tokens.
type Owner struct {
	UserID      string
	DisplayName string
	Tokens      []string
}

// findOwners scans every user record. Linear in user count per alert, which
// holds up for small fleets; a reverse deviceID->owners index is the upgrade
// path when it stops holding up.
func (p *Presence) findOwners(deviceID string) ([]Owner, error) {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryOwners),
	)

	var users []models.User
	if err := p.Db.Conn.Preload("Devices").Preload("Tokens").Find(&users).Error; err != nil {
		logger.Error("Failed to list users", zap.Error(err))
		return nil, err
	}

	deviceName := deviceID
	var device models.Device
	if err := p.Db.Conn.First(&device, "device_id = ?", deviceID).Error; err == nil && device.Name != "" {
		deviceName = device.Name
	}

	var owners []Owner
	for _, u := range users {
		for _, ud := range u.Devices {
			if ud.DeviceID != deviceID {
				continue
			}

			display := deviceName
			if ud.CustomName != "" {
				display = ud.CustomName
			}

			var tokens []string
			for _, tok := range u.Tokens {
				if tok.Active {
					tokens = append(tokens, tok.Token)
				}
			}

			owners = append(owners, Owner{
				UserID:      u.UserID,
				DisplayName: display,
				Tokens:      tokens,
			})
			break
		}
	}

	logger.Info("Resolved owners for device",
		zap.String("device_id", deviceID),
		zap.Int("count", len(owners)))
	return owners, nil
}

type IOwnersImpl struct {
	presence *Presence
}

func (io *IOwnersImpl) FindOwners(deviceID string) ([]Owner, error) {
	return io.presence.findOwners(deviceID)
}

func (p *Presence) GetIOwners() IOwners {
	return &IOwnersImpl{presence: p}
}
