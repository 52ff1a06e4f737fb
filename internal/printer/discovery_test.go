package printer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAdapter struct {
	fakeAdapter
	scans int
}

func (c *countingAdapter) Scan(ctx context.Context, found func(Device) bool) error {
	c.scans++
	return c.fakeAdapter.Scan(ctx, found)
}

func TestNewDiscovery(t *testing.T) {
	ttl := 10 * time.Second
	pd := NewDiscovery(&fakeAdapter{}, DefaultFilter(), ttl, 0, nil)
	assert.Equal(t, ttl, pd.cacheTTL)
	assert.Equal(t, DefaultScanWindow, pd.scanWindow)
}

func TestDiscovery_CachesWithinTTL(t *testing.T) {
	a := &countingAdapter{fakeAdapter: fakeAdapter{devices: []Device{{Name: "POS-1", Address: "01"}}}}
	pd := NewDiscovery(a, DefaultFilter(), time.Minute, time.Second, nil)

	_, err := pd.Devices(context.Background(), false)
	require.NoError(t, err)
	_, err = pd.Devices(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, a.scans)

	_, err = pd.Devices(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, a.scans)
	assert.Equal(t, 1, pd.CachedCount())
}

func TestDiscovery_DeduplicatesByAddress(t *testing.T) {
	a := &fakeAdapter{devices: []Device{
		{Name: "POS-1", Address: "01", RSSI: -80},
		{Name: "POS-1", Address: "01", RSSI: -60},
		{Name: "Lamp", Address: "02"},
	}}
	pd := NewDiscovery(a, DefaultFilter(), time.Minute, time.Second, nil)

	devices, err := pd.Devices(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, -60, devices[0].RSSI)
}

func TestDiscovery_StaleCacheOnError(t *testing.T) {
	a := &fakeAdapter{devices: []Device{{Name: "POS-1", Address: "01"}}}
	pd := NewDiscovery(a, DefaultFilter(), time.Minute, time.Second, nil)

	_, err := pd.Devices(context.Background(), true)
	require.NoError(t, err)

	a.scanErr = errors.New("adapter busy")
	devices, err := pd.Devices(context.Background(), true)
	assert.Error(t, err)
	assert.Len(t, devices, 1)
}
