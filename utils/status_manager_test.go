package utils

import (
	"testing"

	"github.com/fansqz/js-debugger/constants"
	"github.com/stretchr/testify/assert"
)

func TestStatusManager(t *testing.T) {
	manager := NewStatusManager()
	assert.Equal(t, constants.Inactive, manager.Get())

	assert.True(t, manager.Set(constants.Running))
	assert.False(t, manager.Set(constants.Running))
	assert.True(t, manager.Is(constants.Paused, constants.Running))
	assert.False(t, manager.Is(constants.Inactive))
}
