package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"import", "margins", "migrate", "template", "token", "version"}, names)
}

func TestImportCmd_MappingFlags(t *testing.T) {
	root := rootCmd()
	cmd, _, err := root.Find([]string{"import"})
	require.NoError(t, err)

	require.NoError(t, cmd.ParseFlags([]string{"--lot-col", "2", "--price-col", "7", "--data-row", "3"}))

	lot, err := cmd.Flags().GetInt("lot-col")
	require.NoError(t, err)
	assert.Equal(t, 2, lot)
	desc, err := cmd.Flags().GetInt("description-col")
	require.NoError(t, err)
	assert.Equal(t, 1, desc)
	row, err := cmd.Flags().GetInt("data-row")
	require.NoError(t, err)
	assert.Equal(t, 3, row)
}

func TestImportCmd_RequiresQuote(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"import", "--file", "dpgf.csv"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quote")
}

func TestVersionCmd(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "quotectl version dev")
}
