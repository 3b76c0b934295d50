package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("certview.base_url", "https://api.example.com"))
	require.NoError(t, store.Set("certview.page_size", 25))
	require.NoError(t, store.Set("certview.requests_per_second", 1.5))
	require.NoError(t, store.Set("sync.schedule_enabled", true))

	assert.Equal(t, "https://api.example.com", store.GetString("certview.base_url"))
	assert.Equal(t, 25, store.GetInt("certview.page_size"))
	assert.InDelta(t, 1.5, store.GetFloat("certview.requests_per_second"), 0.0001)
	assert.True(t, store.GetBool("sync.schedule_enabled"))
	assert.Equal(t, 4, store.Saves())
}

func TestConfigStore_GetDuration(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("a", 2*time.Minute))
	require.NoError(t, store.Set("b", "45s"))
	require.NoError(t, store.Set("c", 30))
	require.NoError(t, store.Set("d", true))

	assert.Equal(t, 2*time.Minute, store.GetDuration("a"))
	assert.Equal(t, 45*time.Second, store.GetDuration("b"))
	assert.Equal(t, 30*time.Second, store.GetDuration("c"))
	assert.Zero(t, store.GetDuration("d"))
	assert.Zero(t, store.GetDuration("missing"))
}

func TestConfigStore_WrongTypes(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("n", 42))
	require.NoError(t, store.Set("s", "text"))

	assert.Empty(t, store.GetString("n"))
	assert.Zero(t, store.GetInt("s"))
	assert.False(t, store.GetBool("s"))
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Set("k", i)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("k")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Saves())
}
