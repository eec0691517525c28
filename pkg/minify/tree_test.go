package minify_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrhapile/tracepack/pkg/minify"
)

func TestStripTree(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "app")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "pkg", "mod.py"), []byte("\"\"\"Mod.\"\"\"\nX = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.py"), []byte("x = (\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "data.txt"), []byte("\"\"\"keep\"\"\"\n"), 0644))

	out := filepath.Join(root, "app_stripped")
	// stale output is replaced
	require.NoError(t, os.MkdirAll(out, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "stale.py"), nil, 0644))

	n, err := minify.StripTree(stripAll(t), in, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(out, "pkg", "mod.py"))
	require.NoError(t, err)
	assert.Equal(t, "X = 1\n", string(data))

	data, err = os.ReadFile(filepath.Join(out, "bad.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = (\n", string(data))

	data, err = os.ReadFile(filepath.Join(out, "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, "\"\"\"keep\"\"\"\n", string(data))

	assert.NoFileExists(t, filepath.Join(out, "stale.py"))

	// the input is untouched
	data, err = os.ReadFile(filepath.Join(in, "pkg", "mod.py"))
	require.NoError(t, err)
	assert.Equal(t, "\"\"\"Mod.\"\"\"\nX = 1\n", string(data))
}
