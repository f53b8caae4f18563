package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsTimeOrdered(t *testing.T) {
	a := New()
	b := New()
	assert.Equal(t, 7, int(a.Version()))
	assert.LessOrEqual(t, a.String()[:8], b.String()[:8])
}

func TestParse(t *testing.T) {
	v := New()

	got, err := Parse("  " + v.String() + "\n")
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = Parse("00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)

	_, err = Parse("DEV-2026-00001")
	assert.Error(t, err)
}
