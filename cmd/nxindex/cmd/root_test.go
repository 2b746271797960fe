package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_RegistersEverySubcommand(t *testing.T) {
	rootCmd := NewRootCmd()
	for _, name := range []string{"index", "pack", "identify", "search", "status", "doctor", "version"} {
		sub, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, "expected %q to be registered", name)
		assert.Equal(t, name, sub.Name())
	}
}
