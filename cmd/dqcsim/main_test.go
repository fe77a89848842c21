package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/types"
	"github.com/dqcsim/dqcsim/repro"
)

func TestBuildPluginsAssignsFrontendOperatorBackend(t *testing.T) {
	plugins, err := buildPlugins([]string{"/bin/front", "/bin/op", "/bin/back"}, dqlog.Debug)
	require.NoError(t, err)
	require.Len(t, plugins, 3)
	require.Equal(t, types.Frontend, plugins[0].PluginType())
	require.Equal(t, types.Operator, plugins[1].PluginType())
	require.Equal(t, types.Backend, plugins[2].PluginType())
}

func TestBuildPluginsParsesExplicitNames(t *testing.T) {
	plugins, err := buildPlugins([]string{"f=/bin/front", "b=/bin/back"}, dqlog.Debug)
	require.NoError(t, err)
	require.Equal(t, "f", plugins[0].PluginName())
	require.Equal(t, "b", plugins[1].PluginName())
}

func TestBuildPluginsRejectsFewerThanTwo(t *testing.T) {
	_, err := buildPlugins([]string{"/bin/front"}, dqlog.Debug)
	require.Error(t, err)
}

func TestSeedFromParsesNumberOrHashesString(t *testing.T) {
	require.Equal(t, int64(42), seedFrom("42"))
	require.Equal(t, int64(0), seedFrom(""))
	require.NotEqual(t, int64(0), seedFrom("a memorable seed"))
	require.Equal(t, seedFrom("reproducible"), seedFrom("reproducible"))
}

func TestParsePathStyleAcceptsAllThreeStyles(t *testing.T) {
	keep, err := parsePathStyle("keep")
	require.NoError(t, err)
	require.Equal(t, repro.KeepAsTyped, keep)

	rel, err := parsePathStyle("relative")
	require.NoError(t, err)
	require.Equal(t, repro.RelativeToWorkdir, rel)

	abs, err := parsePathStyle("absolute")
	require.NoError(t, err)
	require.Equal(t, repro.Absolute, abs)

	_, err = parsePathStyle("bogus")
	require.Error(t, err)
}

func TestParseTeeRequiresLevelColonFilename(t *testing.T) {
	_, _, err := parseTee("no-colon-here")
	require.Error(t, err)
}

func TestParseTeeOpensFileAtPath(t *testing.T) {
	path := t.TempDir() + "/out.log"
	sink, f, err := parseTee("debug:" + path)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, dqlog.Debug, sink.Level)
}
