package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicEventLatestValueWins(t *testing.T) {
	ae := NewAtomicEvent[int]()
	ae.Send(1)
	ae.Send(2)
	ae.Send(3)

	// Only one notification is pending, carrying the latest value.
	<-ae.Channel()
	assert.Equal(t, 3, ae.Value())

	select {
	case <-ae.Channel():
		t.Fatal("no second notification should be pending")
	default:
	}
}

func TestAtomicEventSendNeverBlocks(t *testing.T) {
	ae := NewAtomicEvent[string]()
	for i := 0; i < 100; i++ {
		ae.Send("value")
	}
	assert.Equal(t, "value", ae.Value())
}
