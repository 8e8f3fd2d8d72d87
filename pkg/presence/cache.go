package presence

import (
	"sync"
	"time"

	"liyu1981.xyz/iot-presence-service/pkg/models"
)

// Entry mirrors one device's persisted status plus the wall-clock time of
// the last message seen from it. LastMessageTime is never persisted; it only
// drives revalidation timing and is rebuilt from "now" on warm-up.
type Entry struct {
	Status          models.DeviceStatus
	LastUpdate      time.Time
	LastMessageTime time.Time
}

type deviceEntry struct {
	mu      sync.Mutex
	entry   Entry
	present bool
}

// DeviceCache keeps one entry per device, each behind its own lock. Acquire
// holds that lock for the caller's whole read-decide-write span, so
// concurrent events for the same device cannot interleave on the debounce
// decision.
type DeviceCache struct {
	mu      sync.Mutex
	devices map[string]*deviceEntry
}

func NewDeviceCache() *DeviceCache {
	return &DeviceCache{devices: make(map[string]*deviceEntry)}
}

// Acquire locks the device's entry and returns a handle that must be
// Released by the caller.
func (c *DeviceCache) Acquire(deviceID string) *LockedEntry {
	c.mu.Lock()
	d, exists := c.devices[deviceID]
	if !exists {
		d = &deviceEntry{}
		c.devices[deviceID] = d
	}
	c.mu.Unlock()

	d.mu.Lock()
	return &LockedEntry{d: d}
}

type LockedEntry struct {
	d *deviceEntry
}

// Get returns the cached entry and whether the device has been seen before.
func (l *LockedEntry) Get() (Entry, bool) {
	return l.d.entry, l.d.present
}

func (l *LockedEntry) Set(e Entry) {
	l.d.entry = e
	l.d.present = true
}

func (l *LockedEntry) Release() {
	l.d.mu.Unlock()
}

// Put sets an entry under the device lock; for warm-up and callers that do
// not need a decision span.
func (c *DeviceCache) Put(deviceID string, e Entry) {
	le := c.Acquire(deviceID)
	le.Set(e)
	le.Release()
}

// Peek reads the current entry without keeping the lock.
func (c *DeviceCache) Peek(deviceID string) (Entry, bool) {
	le := c.Acquire(deviceID)
	defer le.Release()
	return le.Get()
}

func (c *DeviceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.devices {
		d.mu.Lock()
		if d.present {
			n++
		}
		d.mu.Unlock()
	}
	return n
}
