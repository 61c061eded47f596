package courier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	attemptKey = NewKey[int]("attempt")
	sourceKey  = NewKey[string]("source")
	startedKey = NewKey[time.Time]("started")
)

func TestSideChannel(t *testing.T) {
	r := NewRequest("https://example.com/", nil)

	_, ok := Lookup(r, attemptKey)
	assert.False(t, ok)

	SetValue(r, attemptKey, 3)
	SetValue(r, sourceKey, "scheduler")
	now := time.Now()
	SetValue(r, startedKey, now)

	n, ok := Lookup(r, attemptKey)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	src, ok := Lookup(r, sourceKey)
	assert.True(t, ok)
	assert.Equal(t, "scheduler", src)

	ts, ok := Lookup(r, startedKey)
	assert.True(t, ok)
	assert.True(t, now.Equal(ts))

	assert.Equal(t, "attempt", attemptKey.String())
}

func TestSideChannelTypeMismatchIsAbsent(t *testing.T) {
	r := NewRequest("https://example.com/", nil)
	SetValue(r, NewKey[string]("attempt"), "three")

	n, ok := Lookup(r, attemptKey)
	assert.False(t, ok)
	assert.Zero(t, n)
}
