package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinArgs(t *testing.T) {
	assert.Equal(t, `say "hi"`, joinArgs([]string{"say", `"hi"`}))
	assert.Equal(t, "solo", joinArgs([]string{"solo"}))
}

// bootstrap with the default (memory) store backend must never dial
// anything external, so it should always succeed in a test environment.
func TestBootstrapDefaultsToMemoryStore(t *testing.T) {
	t.Setenv("BOTSCRIPT_STORE_BACKEND", "memory")

	cfg, log, eng, err := bootstrap()
	require.NoError(t, err)
	require.NotNil(t, log)
	require.NotNil(t, eng)
	assert.Equal(t, "memory", cfg.StoreBackend)

	require.NoError(t, eng.Save(context.Background(), "greet", `say "hi"`+"\n"))
	names, err := eng.ListSaved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"greet"}, names)
}

func TestScriptCommandTreeHasAllVerbs(t *testing.T) {
	root := newRootCmd()
	script, _, err := root.Find([]string{"script"})
	require.NoError(t, err)

	want := []string{"eval", "run", "save", "list", "status", "stop"}
	for _, verb := range want {
		_, _, err := script.Find([]string{verb})
		assert.NoErrorf(t, err, "expected script subcommand %q to be registered", verb)
	}
}
