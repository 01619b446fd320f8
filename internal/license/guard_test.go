package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"qajalicense/internal/config"
	"qajalicense/internal/shared/testutil"
)

func newTestGuard(t *testing.T, clock *testClock) (*AttemptGuard, *testutil.LogRecorder) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	g := NewAttemptGuard(config.KeyGuardConfig{
		Enabled:       true,
		MaxFailures:   3,
		Window:        time.Minute,
		BlockDuration: 10 * time.Minute,
	}, logger)
	g.now = clock.Now
	t.Cleanup(g.Stop)
	return g, logs
}

func TestAttemptGuardBlocksAfterMaxFailures(t *testing.T) {
	clock := newTestClock(baseTime)
	g, logs := newTestGuard(t, clock)

	assert.True(t, g.RecordFailure("10.0.0.1"))
	assert.True(t, g.RecordFailure("10.0.0.1"))
	assert.False(t, g.IsBlocked("10.0.0.1"))

	assert.False(t, g.RecordFailure("10.0.0.1"))
	assert.True(t, g.IsBlocked("10.0.0.1"))
	assert.False(t, g.IsBlocked("10.0.0.2"))
	assert.True(t, logs.ContainsAttr("action", "security_violation"))

	clock.Advance(11 * time.Minute)
	assert.False(t, g.IsBlocked("10.0.0.1"))
}

func TestAttemptGuardWindowResets(t *testing.T) {
	clock := newTestClock(baseTime)
	g, _ := newTestGuard(t, clock)

	g.RecordFailure("client")
	g.RecordFailure("client")
	clock.Advance(2 * time.Minute)

	assert.True(t, g.RecordFailure("client"))
	assert.False(t, g.IsBlocked("client"))
}

func TestAttemptGuardSuccessClearsHistory(t *testing.T) {
	clock := newTestClock(baseTime)
	g, _ := newTestGuard(t, clock)

	g.RecordFailure("client")
	g.RecordFailure("client")
	g.RecordSuccess("client")

	assert.True(t, g.RecordFailure("client"))
	assert.Equal(t, 1, g.GetStats()["active_attempts"])
}

func TestAttemptGuardDisabled(t *testing.T) {
	g := NewAttemptGuard(config.KeyGuardConfig{Enabled: false}, nil)

	assert.Nil(t, g)
	assert.False(t, g.IsBlocked("client"))
	assert.True(t, g.RecordFailure("client"))
	g.RecordSuccess("client")
	g.Stop()
	assert.Equal(t, false, g.GetStats()["enabled"])
}
