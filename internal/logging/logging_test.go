package logging

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("not-a-level", FormatText)
	assert.Error(t, err)
}

func TestNewAppliesLevelAndFormat(t *testing.T) {
	log, err := New("debug", FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestZoneCacheRefreshesOnTick(t *testing.T) {
	cache := NewZoneCache()
	name, _ := cache.Zone()
	assert.NotEmpty(t, name)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	RunTimezoneSync(ctx, cache, 5*time.Millisecond, nil)

	nameAfter, _ := cache.Zone()
	assert.Equal(t, name, nameAfter)
}
