package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/db"
	"liyu1981.xyz/iot-presence-service/pkg/presence"
	"liyu1981.xyz/iot-presence-service/pkg/push"
)

var maxDevices int = 1000
var rounds int = 20

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))

// noopGateway keeps the benchmark about the core, not about FCM.
type noopGateway struct{}

func (noopGateway) Send(_ context.Context, _ string, _ *push.Message) error {
	return nil
}

func main() {
	common.SetTestLoggerNop()

	core := &presence.Presence{
		Db:      *db.GetInstance(db.UseMemorySqliteDialector()),
		Cache:   presence.NewDeviceCache(),
		Cfg:     presence.DefaultConfig(),
		Gateway: noopGateway{},
	}
	core.WithServices(presence.ServiceOpts{
		Tracker:  core.GetITracker(),
		Alerts:   core.GetIAlerts(),
		Owners:   core.GetIOwners(),
		Notifier: core.GetINotifier(),
	})

	deviceIDs := make([]string, maxDevices)
	for i := 0; i < maxDevices; i++ {
		deviceIDs[i] = uuid.NewString()
	}
	fmt.Printf("generated %v device IDs\n", maxDevices)

	startTime := time.Now()

	var wg sync.WaitGroup
	for _, deviceID := range deviceIDs {
		wg.Add(1)
		go func(deviceID string) {
			defer wg.Done()
			now := time.Now()
			for r := 0; r < rounds; r++ {
				at := now.Add(time.Duration(r) * 15 * time.Second)
				switch {
				case r == 0:
					core.Tracker.HandleAvailability(deviceID, "alive", at)
				case rnd.Intn(20) == 0:
					core.Alerts.HandleAlert(deviceID, `{"message":"benchmark alert","severity":"low"}`, at)
				default:
					core.Tracker.HandleHeartbeat(deviceID, "1", at)
				}
			}
		}(deviceID)
	}
	wg.Wait()

	usedTime := time.Since(startTime)
	total := maxDevices * rounds
	fmt.Printf("processed %v messages from %v devices in %v (%.0f msg/s)\n",
		total, maxDevices, usedTime, float64(total)/usedTime.Seconds())

	sweepStart := time.Now()
	swept, err := core.SweepOnce(time.Now().Add(time.Duration(rounds) * 15 * time.Second).Add(3 * time.Minute))
	if err != nil {
		fmt.Printf("sweep failed: %v\n", err)
		return
	}
	fmt.Printf("swept %v devices offline in %v\n", swept, time.Since(sweepStart))
}
