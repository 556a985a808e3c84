package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_RegistersAllSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"init", "watch", "mcp", "bundle", "status", "setup-mcp", "version"} {
		assert.True(t, names[want], "expected subcommand %q", want)
	}
}

func TestExecute_ExitCodeForUnknownBundle(t *testing.T) {
	assert.Equal(t, ExitUnknownBundle, exitCodeFor(assertErr("bundle: unknown bundle \"nope\"")))
}

func assertErr(msg string) error {
	return errString(msg)
}

type errString string

func (e errString) Error() string { return string(e) }
