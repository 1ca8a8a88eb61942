package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControllerMemoryLimit(t *testing.T) {
	rc := NewController(Config{MemoryLimitBytes: 100})

	assert.True(t, rc.TryAcquireMemory(60))
	assert.Equal(t, int64(60), rc.MemoryUsage())

	// would exceed the hard limit
	assert.False(t, rc.TryAcquireMemory(50))
	assert.Equal(t, int64(60), rc.MemoryUsage())

	rc.ReleaseMemory(60)
	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.True(t, rc.TryAcquireMemory(100))
}

func TestControllerUnlimitedMemoryTracks(t *testing.T) {
	rc := NewController(Config{})

	assert.True(t, rc.TryAcquireMemory(1 << 30))
	assert.Equal(t, int64(1<<30), rc.MemoryUsage())
	rc.ReleaseMemory(1 << 30)
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestControllerNilSafe(t *testing.T) {
	var rc *Controller

	assert.True(t, rc.TryAcquireMemory(10))
	rc.ReleaseMemory(10)
	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.True(t, rc.AllowQuery())
}

func TestControllerQueryRate(t *testing.T) {
	rc := NewController(Config{QueriesPerSec: 1})

	// burst of 1: the first query passes, an immediate second is denied
	assert.True(t, rc.AllowQuery())
	assert.False(t, rc.AllowQuery())
}

func TestControllerBackgroundSlots(t *testing.T) {
	rc := NewController(Config{MaxBackgroundWorkers: 1})

	assert.True(t, rc.TryAcquireBackground())
	assert.False(t, rc.TryAcquireBackground())
	rc.ReleaseBackground()
	assert.True(t, rc.TryAcquireBackground())
}
