package control_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-meta/control"
)

func TestEventBusFIFO(t *testing.T) {
	bus := control.NewEventBus(0)
	var got []string
	bus.Subscribe(func(ev control.Event) { got = append(got, ev.Owner) })

	bus.Publish(control.Event{Kind: control.OwnerCreated, Owner: "a"})
	bus.Publish(control.Event{Kind: control.OwnerCreated, Owner: "b"})
	bus.Publish(control.Event{Kind: control.OwnerDestroyed, Owner: "a"})
	assert.Equal(t, 3, bus.Pending())

	assert.Equal(t, 3, bus.Flush())
	assert.Equal(t, []string{"a", "b", "a"}, got)
	assert.Zero(t, bus.Pending())
	assert.Zero(t, bus.Flush())
}

func TestEventBusDropsPastLimit(t *testing.T) {
	bus := control.NewEventBus(2)
	bus.Subscribe(func(control.Event) {})
	assert.True(t, bus.Publish(control.Event{Kind: control.SweepCompleted}))
	assert.True(t, bus.Publish(control.Event{Kind: control.SweepCompleted}))
	assert.False(t, bus.Publish(control.Event{Kind: control.SweepCompleted}))
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestEventBusWithoutSubscribersKeepsNothing(t *testing.T) {
	bus := control.NewEventBus(1)
	for i := 0; i < 10; i++ {
		assert.True(t, bus.Publish(control.Event{Kind: control.OwnerCreated}))
	}
	assert.Zero(t, bus.Pending())
	assert.Zero(t, bus.Dropped())
}

func TestEventBusHandlerMayPublish(t *testing.T) {
	bus := control.NewEventBus(0)
	var kinds []control.EventKind
	bus.Subscribe(func(ev control.Event) {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == control.OwnerCreated {
			bus.Publish(control.Event{Kind: control.OwnerDestroyed, Owner: ev.Owner})
		}
	})
	bus.Publish(control.Event{Kind: control.OwnerCreated, Owner: "x"})
	assert.Equal(t, 2, bus.Flush())
	assert.Zero(t, bus.Pending())
	assert.Equal(t, []control.EventKind{control.OwnerCreated, control.OwnerDestroyed}, kinds)
}

func TestEventBusHandlerMayFlush(t *testing.T) {
	bus := control.NewEventBus(0)
	var owners []string
	bus.Subscribe(func(ev control.Event) {
		owners = append(owners, ev.Owner)
		if ev.Owner == "a" {
			bus.Publish(control.Event{Kind: control.OwnerCreated, Owner: "b"})
			assert.Zero(t, bus.Flush())
		}
	})
	bus.Publish(control.Event{Kind: control.OwnerCreated, Owner: "a"})
	assert.Equal(t, 2, bus.Flush())
	assert.Equal(t, []string{"a", "b"}, owners)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "owner_created", control.OwnerCreated.String())
	assert.Equal(t, "sweep_completed", control.SweepCompleted.String())
	assert.Equal(t, "unknown", control.EventKind(0).String())
}
