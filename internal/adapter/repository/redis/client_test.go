package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", c.Options().Addr)
	c.Close()

	c, err = NewClient("redis://:pw@cache.internal:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", c.Options().Addr)
	assert.Equal(t, 2, c.Options().DB)
	c.Close()

	_, err = NewClient("redis://cache.internal:6380/notadb")
	assert.Error(t, err)
}

func TestDLQStream(t *testing.T) {
	assert.Equal(t, "audit_events_dlq", DLQStream("audit_events"))
}
