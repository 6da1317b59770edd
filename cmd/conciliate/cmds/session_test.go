package cmds

import (
	"testing"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlazedCommandsDeclareSessionFlags(t *testing.T) {
	run, err := NewRunCommand()
	require.NoError(t, err)
	serve, err := NewServeCommand()
	require.NoError(t, err)

	runCobra, err := cli.BuildCobraCommand(run)
	require.NoError(t, err)
	serveCobra, err := cli.BuildCobraCommand(serve)
	require.NoError(t, err)

	for _, name := range []string{"document", "script", "dry-run", "max-rounds"} {
		assert.NotNil(t, runCobra.Flags().Lookup(name), "run --%s", name)
		assert.NotNil(t, serveCobra.Flags().Lookup(name), "serve --%s", name)
	}
	assert.NotNil(t, runCobra.Flags().Lookup("print-raw-events"))
	assert.NotNil(t, serveCobra.Flags().Lookup("addr"))
	assert.Equal(t, "run", runCobra.Name())
}
