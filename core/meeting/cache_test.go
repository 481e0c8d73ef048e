package meeting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_legacyCache(t *testing.T) {
	c := newLegacyCache(2, time.Hour)

	c.add("room-1", Meeting{MeetingId: "m1"})
	c.add("room-2", Meeting{MeetingId: "m2"})
	m, ok := c.get("room-1")
	assert.True(t, ok)
	assert.Equal(t, "m1", m.MeetingId)

	// room-2 is the least recently used
	c.add("room-3", Meeting{MeetingId: "m3"})
	assert.Equal(t, 2, c.len())
	_, ok = c.get("room-2")
	assert.False(t, ok)

	c.remove("room-1")
	_, ok = c.get("room-1")
	assert.False(t, ok)
}

func Test_legacyCache_expiry(t *testing.T) {
	c := newLegacyCache(0, 10*time.Millisecond)

	c.add("room-1", Meeting{MeetingId: "m1"})
	time.Sleep(50 * time.Millisecond)
	_, ok := c.get("room-1")
	assert.False(t, ok)
}
