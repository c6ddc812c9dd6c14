package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	c.Set("a", 1, time.Minute)
	c.Set("forever", 2, 0)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.False(t, c.SetIfAbsent("a", 3, time.Minute))
	assert.True(t, c.SetIfAbsent("b", 3, time.Second))

	now = now.Add(2 * time.Second)
	assert.True(t, c.SetIfAbsent("b", 4, time.Second), "expired entry is replaced")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Purge())

	c.Delete("forever")
	_, ok = c.Get("forever")
	assert.False(t, ok)
}
