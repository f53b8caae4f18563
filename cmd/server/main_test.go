package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	cmd := rootCmd()

	require.NoError(t, cmd.Flags().Parse([]string{"-c", "hubchantier.yaml"}))
	assert.Equal(t, "hubchantier.yaml", cmd.Flag("config").Value.String())

	var out bytes.Buffer
	cmd = rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), version)
}
