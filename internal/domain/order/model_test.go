package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusOutForDelivery.Terminal())
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestCanCancel(t *testing.T) {
	assert.True(t, Order{Status: StatusPending}.CanCancel())
	assert.True(t, Order{Status: StatusProcessing}.CanCancel())
	assert.False(t, Order{Status: StatusOutForDelivery}.CanCancel())
	assert.False(t, Order{Status: StatusDelivered}.CanCancel())
	assert.False(t, Order{Status: StatusCancelled}.CanCancel())
}
