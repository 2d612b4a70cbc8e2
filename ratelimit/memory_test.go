package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestMemory(start time.Time) (*Memory, *time.Time) {
	clock := start
	m := NewMemory()
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestMemory_Check_EnforcesLimit(t *testing.T) {
	m, _ := setupTestMemory(time.Now())
	ctx := context.Background()

	allowed, err := m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "second attempt inside the window must be rejected")
}

func TestMemory_Check_WindowSlides(t *testing.T) {
	m, clock := setupTestMemory(time.Now())
	ctx := context.Background()

	allowed, err := m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	*clock = clock.Add(5*time.Minute + time.Second)

	allowed, err = m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "attempt after the window expires must pass")
}

func TestMemory_Check_RejectionNotRecorded(t *testing.T) {
	m, clock := setupTestMemory(time.Now())
	ctx := context.Background()

	_, err := m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)

	// Hammer the limiter; rejected attempts must not extend the window.
	for i := 0; i < 10; i++ {
		*clock = clock.Add(30 * time.Second)
		allowed, err := m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	}

	*clock = clock.Add(30 * time.Second) // 5m30s after the single recorded hit
	allowed, err := m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemory_Check_KeysAreIndependent(t *testing.T) {
	m, _ := setupTestMemory(time.Now())
	ctx := context.Background()

	allowed, err := m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	// Different action, same subject.
	allowed, err = m.Check(ctx, "user-1", "file_upload", 1, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Same action, different subject.
	allowed, err = m.Check(ctx, "user-2", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemory_Remaining(t *testing.T) {
	m, clock := setupTestMemory(time.Now())
	ctx := context.Background()

	remaining, err := m.Remaining(ctx, "user-1", "ticket_create", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), remaining, "no recorded hits means no wait")

	_, err = m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)

	*clock = clock.Add(2 * time.Minute)
	remaining, err = m.Remaining(ctx, "user-1", "ticket_create", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, remaining)

	*clock = clock.Add(10 * time.Minute)
	remaining, err = m.Remaining(ctx, "user-1", "ticket_create", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), remaining, "remaining floors at zero")
}

func TestMemory_Clear(t *testing.T) {
	m, _ := setupTestMemory(time.Now())
	ctx := context.Background()

	_, err := m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)

	require.NoError(t, m.Clear(ctx, "user-1", "ticket_create"))

	allowed, err := m.Check(ctx, "user-1", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemory_Sweep(t *testing.T) {
	m, clock := setupTestMemory(time.Now())
	ctx := context.Background()

	_, err := m.Check(ctx, "stale-user", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)

	*clock = clock.Add(retention - time.Minute)
	_, err = m.Check(ctx, "fresh-user", "ticket_create", 1, 5*time.Minute)
	require.NoError(t, err)

	*clock = clock.Add(2 * time.Minute)
	m.Sweep()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.NotContains(t, m.hits, key("stale-user", "ticket_create"))
	assert.Contains(t, m.hits, key("fresh-user", "ticket_create"))
}

func TestMemory_Check_Concurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := m.Check(ctx, "user-1", "ticket_create", 5, time.Minute)
			assert.NoError(t, err)
			if allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, allowedCount, "exactly limit attempts may pass under contention")
}
