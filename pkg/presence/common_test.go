package presence

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"

	"go.uber.org/mock/gomock"
	"liyu1981.xyz/iot-presence-service/pkg/db"
	"liyu1981.xyz/iot-presence-service/pkg/models"
	"liyu1981.xyz/iot-presence-service/pkg/push/mocks"
)

func GetTestPresenceWithMemorySqliteDialector(t *testing.T) (
	*gomock.Controller,
	*Presence,
	*mocks.MockGateway,
) {
	ctrl := gomock.NewController(t)
	mockGateway := mocks.NewMockGateway(ctrl)

	dialector := db.UseMemorySqliteDialector()
	dbInstance := db.GetInstance(dialector) // ensure migrations

	core := &Presence{
		Db:      *dbInstance,
		Cache:   NewDeviceCache(),
		Cfg:     DefaultConfig(),
		Gateway: mockGateway,
	}
	core.WithServices(ServiceOpts{
		Tracker:  core.GetITracker(),
		Alerts:   core.GetIAlerts(),
		Owners:   core.GetIOwners(),
		Notifier: core.GetINotifier(),
	})

	return ctrl, core, mockGateway
}

func countLogs(t *testing.T, core *Presence, deviceID string, msgType string) int64 {
	t.Helper()
	var count int64
	if err := core.Db.Conn.Model(&models.MessageLog{}).
		Where("device_id = ? AND type = ?", deviceID, msgType).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count log entries: %v", err)
	}
	return count
}

func getDevice(t *testing.T, core *Presence, deviceID string) (models.Device, error) {
	t.Helper()
	var device models.Device
	err := core.Db.Conn.First(&device, "device_id = ?", deviceID).Error
	return device, err
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
