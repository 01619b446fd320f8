package license

import (
	"log/slog"
	"sync"
	"time"

	"qajalicense/internal/config"
	"qajalicense/internal/infrastructure"
)

// AttemptGuard blocks clients that keep validating unknown keys
type AttemptGuard struct {
	attemptCounts map[string]int
	lastAttempts  map[string]time.Time
	blocked       map[string]time.Time

	mutex           sync.RWMutex
	maxAttempts     int
	blockDuration   time.Duration
	windowDuration  time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
	logger          *slog.Logger
	stopChan        chan struct{}
	stopOnce        sync.Once
}

// NewAttemptGuard creates a guard from configuration. It returns nil when
// the guard is disabled; a nil guard never blocks.
func NewAttemptGuard(cfg config.KeyGuardConfig, logger *slog.Logger) *AttemptGuard {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	g := &AttemptGuard{
		attemptCounts:   make(map[string]int),
		lastAttempts:    make(map[string]time.Time),
		blocked:         make(map[string]time.Time),
		maxAttempts:     cfg.MaxFailures,
		blockDuration:   cfg.BlockDuration,
		windowDuration:  cfg.Window,
		cleanupInterval: config.CacheCleanupInterval,
		now:             time.Now,
		logger:          logger.With(slog.String("component", "key_guard")),
		stopChan:        make(chan struct{}),
	}

	go g.cleanup()

	return g
}

// IsBlocked reports whether identifier is currently blocked
func (g *AttemptGuard) IsBlocked(identifier string) bool {
	if g == nil {
		return false
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if blockTime, exists := g.blocked[identifier]; exists {
		return g.now().Sub(blockTime) < g.blockDuration
	}
	return false
}

// RecordFailure counts an unknown-key attempt. It returns false once the
// identifier has been blocked.
func (g *AttemptGuard) RecordFailure(identifier string) bool {
	if g == nil {
		return true
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	now := g.now()

	if lastAttempt, exists := g.lastAttempts[identifier]; exists && now.Sub(lastAttempt) <= g.windowDuration {
		g.attemptCounts[identifier]++
	} else {
		g.attemptCounts[identifier] = 1
	}
	g.lastAttempts[identifier] = now

	if g.attemptCounts[identifier] >= g.maxAttempts {
		g.blocked[identifier] = now
		g.logger.Warn("client blocked after repeated unknown license keys",
			slog.String("action", "security_violation"),
			slog.String("client", identifier),
			slog.Int("attempt_count", g.attemptCounts[identifier]),
			slog.Int("max_attempts", g.maxAttempts),
		)
		return false
	}
	return true
}

// RecordSuccess clears the failure history of identifier
func (g *AttemptGuard) RecordSuccess(identifier string) {
	if g == nil {
		return
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()
	delete(g.attemptCounts, identifier)
	delete(g.lastAttempts, identifier)
}

// GetStats returns guard statistics
func (g *AttemptGuard) GetStats() map[string]interface{} {
	if g == nil {
		return map[string]interface{}{"enabled": false}
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return map[string]interface{}{
		"enabled":         true,
		"active_attempts": len(g.attemptCounts),
		"blocked_clients": len(g.blocked),
		"max_attempts":    g.maxAttempts,
		"block_duration":  g.blockDuration.String(),
		"window_duration": g.windowDuration.String(),
	}
}

// Stop ends the cleanup goroutine
func (g *AttemptGuard) Stop() {
	if g == nil {
		return
	}
	g.stopOnce.Do(func() { close(g.stopChan) })
}

func (g *AttemptGuard) cleanup() {
	ticker := time.NewTicker(g.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.mutex.Lock()
			now := g.now()
			for identifier, lastAttempt := range g.lastAttempts {
				if now.Sub(lastAttempt) > g.windowDuration {
					delete(g.attemptCounts, identifier)
					delete(g.lastAttempts, identifier)
				}
			}
			for identifier, blockTime := range g.blocked {
				if now.Sub(blockTime) > g.blockDuration {
					delete(g.blocked, identifier)
				}
			}
			g.mutex.Unlock()
		case <-g.stopChan:
			return
		}
	}
}
