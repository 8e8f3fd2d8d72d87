package presence

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/models"
	_ "liyu1981.xyz/iot-presence-service/pkg/testing"
)

func TestAvailabilityDebounce(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _ := GetTestPresenceWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()
	base := time.Now()

	// first-seen always writes
	err := core.Tracker.HandleAvailability(deviceID, "alive", base)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, countLogs(t, core, deviceID, models.MessageTypeAvailability))

	device, err := getDevice(t, core, deviceID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusOnline, device.Status)
	assert.Equal(t, base.Unix(), device.LastUpdate.Unix())

	// unchanged status within the revalidation window: no persisted write
	err = core.Tracker.HandleAvailability(deviceID, "alive", base.Add(30*time.Second))
	assert.NoError(t, err)
	assert.EqualValues(t, 1, countLogs(t, core, deviceID, models.MessageTypeAvailability))

	device, err = getDevice(t, core, deviceID)
	assert.NoError(t, err)
	assert.Equal(t, base.Unix(), device.LastUpdate.Unix())

	// but the cache entry is still refreshed
	entry, known := core.Cache.Peek(deviceID)
	assert.True(t, known)
	assert.Equal(t, base.Add(30*time.Second).Unix(), entry.LastMessageTime.Unix())
}

func TestAvailabilityRevalidation(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _ := GetTestPresenceWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()
	base := time.Now()

	err := core.Tracker.HandleAvailability(deviceID, "alive", base)
	assert.NoError(t, err)

	// unchanged status but past the revalidation window: forced write
	err = core.Tracker.HandleAvailability(deviceID, "alive", base.Add(130*time.Second))
	assert.NoError(t, err)
	assert.EqualValues(t, 2, countLogs(t, core, deviceID, models.MessageTypeAvailability))

	device, err := getDevice(t, core, deviceID)
	assert.NoError(t, err)
	assert.Equal(t, base.Add(130*time.Second).Unix(), device.LastUpdate.Unix())
}

func TestMaintenanceAlwaysWrites(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _ := GetTestPresenceWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()
	base := time.Now()

	err := core.Tracker.HandleAvailability(deviceID, "maintenance", base)
	assert.NoError(t, err)

	// re-asserted immediately, still written
	err = core.Tracker.HandleAvailability(deviceID, "maintenance", base.Add(10*time.Second))
	assert.NoError(t, err)
	assert.EqualValues(t, 2, countLogs(t, core, deviceID, models.MessageTypeAvailability))

	device, err := getDevice(t, core, deviceID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusMaintenance, device.Status)
}

func TestUnknownAvailabilityPayloadDefaultsToOnline(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _ := GetTestPresenceWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()

	err := core.Tracker.HandleAvailability(deviceID, "???", time.Now())
	assert.NoError(t, err)

	device, err := getDevice(t, core, deviceID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusOnline, device.Status)
}

func TestHeartbeatIgnoredDuringMaintenance(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _ := GetTestPresenceWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()
	base := time.Now()

	err := core.Tracker.HandleAvailability(deviceID, "maintenance", base)
	assert.NoError(t, err)

	err = core.Tracker.HandleHeartbeat(deviceID, "1", base.Add(10*time.Second))
	assert.NoError(t, err)

	// no write, no log, no cache mutation
	assert.EqualValues(t, 0, countLogs(t, core, deviceID, models.MessageTypeHeartbeat))

	device, err := getDevice(t, core, deviceID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusMaintenance, device.Status)

	entry, known := core.Cache.Peek(deviceID)
	assert.True(t, known)
	assert.Equal(t, models.StatusMaintenance, entry.Status)
	assert.Equal(t, base.Unix(), entry.LastMessageTime.Unix())
}

func TestHeartbeatRevalidationPersistsWithoutLog(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _ := GetTestPresenceWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()
	base := time.Now()

	// first heartbeat is a status change: logged and persisted
	err := core.Tracker.HandleHeartbeat(deviceID, "1", base)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, countLogs(t, core, deviceID, models.MessageTypeHeartbeat))

	// past the window with no change: persisted but not logged
	err = core.Tracker.HandleHeartbeat(deviceID, "1", base.Add(130*time.Second))
	assert.NoError(t, err)
	assert.EqualValues(t, 1, countLogs(t, core, deviceID, models.MessageTypeHeartbeat))

	device, err := getDevice(t, core, deviceID)
	assert.NoError(t, err)
	assert.Equal(t, base.Add(130*time.Second).Unix(), device.LastUpdate.Unix())
}

func TestLoadCache(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _ := GetTestPresenceWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()
	base := time.Now().Add(-10 * time.Minute)

	err := core.Db.Conn.Create(&models.Device{
		DeviceID:   deviceID,
		Status:     models.StatusOnline,
		LastUpdate: base,
	}).Error
	assert.NoError(t, err)

	err = core.Tracker.LoadCache()
	assert.NoError(t, err)

	entry, known := core.Cache.Peek(deviceID)
	assert.True(t, known)
	assert.Equal(t, models.StatusOnline, entry.Status)
	assert.Equal(t, base.Unix(), entry.LastUpdate.Unix())
	// lastMessageTime is rebuilt from warm-up time, not the stored value
	assert.True(t, entry.LastMessageTime.After(base))
}

func TestHandleAvailability_WithLog(t *testing.T) {
	var buf = &bytes.Buffer{}
	common.SetTestCaptureLogger(buf, zapcore.InfoLevel)

	ctrl, core, _ := GetTestPresenceWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()

	err := core.Tracker.HandleAvailability(deviceID, "alive", time.Now())
	assert.NoError(t, err)

	logs := ParseLogs(buf)

	found := false
	for _, log := range logs {
		lobj := log.(map[string]any)
		if lobj["category"] == "availability" &&
			lobj["logger"] == "presence_core" &&
			lobj["msg"] == "Device status updated" &&
			lobj["device_id"] == deviceID &&
			lobj["status"] == "ONLINE" &&
			lobj["reason"] == "changed" {
			found = true
		}
	}
	assert.True(t, found)
}
