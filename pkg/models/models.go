package models

import "time"

type DeviceStatus string

const (
	StatusOnline      DeviceStatus = "ONLINE"
	StatusOffline     DeviceStatus = "OFFLINE"
	StatusMaintenance DeviceStatus = "MAINTENANCE"
)

// Message types as they appear in the trailing topic segment and in the
// message log. Offline entries are produced by the sweeper, not by devices.
const (
	MessageTypeAvailability string = "availability"
	MessageTypeHeartbeat    string = "alive"
	MessageTypeAlert        string = "alerts"
	MessageTypeQuery        string = "query"
	MessageTypeOffline      string = "offline"
)

type Device struct {
	DeviceID   string `gorm:"primaryKey"`
	Name       string
	Status     DeviceStatus `gorm:"type:varchar(20);check:status IN ('ONLINE','OFFLINE','MAINTENANCE')"`
	LastUpdate time.Time
}

// MessageLog is the append-only audit trail. One row per accepted event;
// suppressed events are never logged.
type MessageLog struct {
	ID        uint   `gorm:"primaryKey"`
	DeviceID  string `gorm:"index"`
	Type      string `gorm:"index"`
	Payload   string
	Timestamp time.Time
}

type User struct {
	UserID string `gorm:"primaryKey"`

	Devices []UserDevice `gorm:"foreignKey:UserID;references:UserID"`
	Tokens  []PushToken  `gorm:"foreignKey:UserID;references:UserID"`
}

// UserDevice links a user to a device they registered, optionally under a
// custom display name.
type UserDevice struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     string `gorm:"index"`
	DeviceID   string `gorm:"index"`
	CustomName string
}

type PushToken struct {
	ID     uint   `gorm:"primaryKey"`
	UserID string `gorm:"index"`
	Token  string `gorm:"index"`
	Active bool
}
