// Package logging wires up the logrus logger and the timezone-sync
// background task named in spec.md's ambient stack: the core itself only
// specifies that a logger and a periodic timezone refresh exist, leaving
// their implementation as an external collaborator (spec.md "Out of
// scope"). This package is that collaborator.
package logging

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Format selects the logrus formatter.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// New builds a logrus.Logger at the given level and format. levelName must
// parse via logrus.ParseLevel ("debug", "info", "warn", "error", ...).
func New(levelName string, format Format) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetLevel(lvl)
	switch format {
	case FormatJSON:
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// ZoneCache holds the most recently observed local timezone name and UTC
// offset, refreshed periodically by RunTimezoneSync so long-running
// processes pick up DST transitions and admin-driven TZ changes without a
// restart.
type ZoneCache struct {
	name   atomic.Value
	offset atomic.Int64
}

// NewZoneCache creates a ZoneCache populated with the current zone.
func NewZoneCache() *ZoneCache {
	z := &ZoneCache{}
	z.refresh()
	return z
}

func (z *ZoneCache) refresh() {
	name, offset := time.Now().Zone()
	z.name.Store(name)
	z.offset.Store(int64(offset))
}

// Zone returns the cached zone name and UTC offset in seconds.
func (z *ZoneCache) Zone() (string, int) {
	name, _ := z.name.Load().(string)
	return name, int(z.offset.Load())
}

// RunTimezoneSync refreshes cache every interval until ctx is canceled,
// logging at Info level whenever the observed zone name changes. It is
// meant to run as a single background goroutine for the life of the
// process.
func RunTimezoneSync(ctx context.Context, cache *ZoneCache, interval time.Duration, log *logrus.Entry) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before, _ := cache.Zone()
			cache.refresh()
			after, _ := cache.Zone()
			if after != before && log != nil {
				log.WithField("zone", after).Info("local timezone changed")
			}
		}
	}
}
