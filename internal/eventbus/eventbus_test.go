package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/platoon/core/events"
	"github.com/kilianp07/platoon/internal/eventbus"
)

func TestBusFansOutPlatoonEvents(t *testing.T) {
	bus := eventbus.New()
	recorder := bus.Subscribe()
	collector := bus.Subscribe()

	bus.Publish(events.PlatoonMerged{PlatoonID: 1, AbsorbedID: 2, VehicleIDs: []string{"a", "b"}})
	for _, ch := range []<-chan eventbus.Event{recorder, collector} {
		ev, ok := (<-ch).(events.PlatoonMerged)
		require.True(t, ok)
		assert.Equal(t, 2, ev.AbsorbedID)
	}

	bus.Unsubscribe(collector)
	bus.Publish(events.VehicleRemoved{VehicleID: "a"})
	_, open := <-collector
	assert.False(t, open, "unsubscribed channel is closed")
	assert.IsType(t, events.VehicleRemoved{}, <-recorder)
}

func TestBusCloseDrainsBufferedEvents(t *testing.T) {
	bus := eventbus.NewWithBuffer(4)
	ch := bus.Subscribe()
	bus.Publish(events.VehicleRegistered{VehicleID: "a"})
	bus.Publish(events.VehicleRegistered{VehicleID: "b"})
	bus.Close()
	bus.Publish(events.VehicleRegistered{VehicleID: "c"})

	var got []string
	for ev := range ch {
		got = append(got, ev.(events.VehicleRegistered).VehicleID)
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Zero(t, bus.Dropped())
	assert.NotPanics(t, func() { bus.Unsubscribe(ch) })
}
