package cli

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	assert.Contains(t, names, "extract")
	assert.Contains(t, names, "migrate")
	assert.Contains(t, names, "load")
}

func TestExtractCommand_VendorSubcommands(t *testing.T) {
	cmd := NewExtractCommand(&RootOptions{})

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"canvas", "classroom", "schoology"}, names)
}

func TestExtractCanvas_MissingCredentials(t *testing.T) {
	err := execute(t, "extract", "canvas")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExtractSchoology_MissingCredentials(t *testing.T) {
	err := execute(t, "extract", "schoology")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrate_MissingConnectionString(t *testing.T) {
	err := execute(t, "migrate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoad_MissingConfigFile(t *testing.T) {
	err := execute(t, "load", "--config", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
