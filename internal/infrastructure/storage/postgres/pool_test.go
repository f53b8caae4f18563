package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilPool(t *testing.T) {
	var p *Pool
	assert.ErrorIs(t, p.Ping(context.Background()), errPoolClosed)
	assert.Equal(t, PoolStats{}, p.Stats())
	assert.NotPanics(t, p.Close)
}

func TestNewPool_BadDSN(t *testing.T) {
	_, err := NewPool(context.Background(), DefaultPoolConfig("://nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database url")
}
