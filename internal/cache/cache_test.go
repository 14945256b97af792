package cache

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedCache_EvictsOldestInserted(t *testing.T) {
	c := NewProcessedCache(3)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		c.Add(fmt.Sprintf("file-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("file-0")
	assert.False(t, ok, "first-inserted entry should have been evicted")
	for i := 1; i < 4; i++ {
		_, ok := c.Get(fmt.Sprintf("file-%d", i))
		assert.True(t, ok)
	}
}

func TestProcessedCache_OverwriteKeepsInsertionOrder(t *testing.T) {
	c := NewProcessedCache(2)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c.Add("a", base)
	c.Add("b", base)
	// Overwriting "a" must not move it to the back of the eviction order.
	c.Add("a", base.Add(time.Hour))
	c.Add("c", base)

	_, ok := c.Get("a")
	assert.False(t, ok, "overwritten entry keeps its insertion slot and is evicted first")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestProcessedCache_OverwriteUpdatesTimestamp(t *testing.T) {
	c := NewProcessedCache(5)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c.Add("a", base)
	c.Add("a", base.Add(time.Hour))

	ts, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Hour), ts)
}

func TestProcessedCache_IsWithin(t *testing.T) {
	c := NewProcessedCache(10)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Add("a", now)
	assert.True(t, c.IsWithin("a", 300*time.Second))
	assert.False(t, c.IsWithin("missing", 300*time.Second))

	now = now.Add(301 * time.Second)
	assert.False(t, c.IsWithin("a", 300*time.Second))
}

func TestProcessedCache_NormalizesToUTC(t *testing.T) {
	c := NewProcessedCache(10)
	loc := time.FixedZone("UTC+8", 8*3600)

	c.Add("a", time.Date(2024, 6, 1, 20, 0, 0, 0, loc))

	ts, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, 12, ts.Hour())
}

func TestSeenFiles_RoundTrip(t *testing.T) {
	path := t.TempDir() + "/processed_files.json"

	s, err := LoadSeenFiles(path)
	require.NoError(t, err)
	assert.False(t, s.Contains("abc"))

	require.NoError(t, s.Add("abc"))
	require.NoError(t, s.Add("def"))

	reloaded, err := LoadSeenFiles(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains("abc"))
	assert.True(t, reloaded.Contains("def"))
	assert.False(t, reloaded.Contains("ghi"))
}

func TestSeenFiles_TruncatesToNewest(t *testing.T) {
	path := t.TempDir() + "/processed_files.json"

	s, err := LoadSeenFiles(path)
	require.NoError(t, err)
	for i := 0; i < MaxSeenFiles+5; i++ {
		require.NoError(t, s.Add(fmt.Sprintf("id-%d", i)))
	}

	reloaded, err := LoadSeenFiles(path)
	require.NoError(t, err)
	assert.False(t, reloaded.Contains("id-0"))
	assert.False(t, reloaded.Contains("id-4"))
	assert.True(t, reloaded.Contains("id-5"))
	assert.True(t, reloaded.Contains(fmt.Sprintf("id-%d", MaxSeenFiles+4)))
	assert.Len(t, reloaded.ids, MaxSeenFiles)
}

func TestSeenFiles_CorruptFileErrors(t *testing.T) {
	path := t.TempDir() + "/processed_files.json"
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadSeenFiles(path)
	assert.Error(t, err)
}
