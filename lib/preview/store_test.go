package preview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	now := time.Unix(0, 0)
	s := NewStore(time.Minute)
	s.now = func() time.Time { return now }

	s.Set("a", []byte("1"))
	s.Set("b", []byte("2"))
	assert.Equal(t, 2, s.Len())

	data, has := s.Take("a")
	assert.True(t, has)
	assert.Equal(t, "1", string(data))

	_, has = s.Take("a")
	assert.False(t, has)

	now = now.Add(time.Minute)
	assert.Zero(t, s.Len())
	_, has = s.Take("b")
	assert.False(t, has)
}
