package presence

import (
	"time"

	"liyu1981.xyz/iot-presence-service/pkg/db"
	"liyu1981.xyz/iot-presence-service/pkg/push"
)

type ITracker interface {
	LoadCache() error
	HandleAvailability(deviceID string, payload string, now time.Time) error
	HandleHeartbeat(deviceID string, payload string, now time.Time) error
}

type IAlerts interface {
	HandleAlert(deviceID string, payload string, now time.Time) error
}

type IOwners interface {
	FindOwners(deviceID string) ([]Owner, error)
}

type INotifier interface {
	Notify(owner Owner, deviceID string, alert AlertPayload) (FanoutResult, error)
}

type Presence struct {
	Db      db.DB
	Cache   *DeviceCache
	Cfg     Config
	Gateway push.Gateway

	Tracker  ITracker
	Alerts   IAlerts
	Owners   IOwners
	Notifier INotifier
}

type ServiceOpts struct {
	Tracker  ITracker
	Alerts   IAlerts
	Owners   IOwners
	Notifier INotifier
}

func (p *Presence) WithServices(opts ServiceOpts) *Presence {
	if opts.Tracker != nil {
		p.Tracker = opts.Tracker
	}
	if opts.Alerts != nil {
		p.Alerts = opts.Alerts
	}
	if opts.Owners != nil {
		p.Owners = opts.Owners
	}
	if opts.Notifier != nil {
		p.Notifier = opts.Notifier
	}
	return p
}
