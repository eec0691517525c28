package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrhapile/tracepack/pkg/bundler"
	"github.com/mrhapile/tracepack/pkg/report"
)

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "numpy-1.26.1-cp311-cp311-emscripten_3_1_46_wasm32", archiveName("/dist/numpy-1.26.1-cp311-cp311-emscripten_3_1_46_wasm32.whl"))
	assert.Equal(t, "app", archiveName("app.zip"))
}

func TestStrippedDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/src", "lib_stripped"), strippedDir("/src/lib", false))
	assert.Equal(t, filepath.Join("/src", "lib_stripped_no_docstrings"), strippedDir("/src/lib", true))
}

func TestBundleCommand(t *testing.T) {
	dir := t.TempDir()

	app := filepath.Join(dir, "app.zip")
	f, err := os.Create(app)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"app/main.py":   "\"\"\"Entry point.\"\"\"\nprint('hi')\n",
		"app/unused.py": "x = 1\n",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	tracePath := filepath.Join(dir, "trace.json")
	require.NoError(t, os.WriteFile(tracePath, []byte(`{
  "opened_file_names": ["/lib/python3.11/site-packages/app/main.py"],
  "load_dyn_lib_calls": []
}`), 0644))

	outDir := filepath.Join(dir, "out")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"bundle", "--trace", tracePath, "--format", "json", "-o", outDir, "--app", dir, app})
	require.NoError(t, rootCmd.Execute())

	var summary report.Summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, filepath.Join(outDir, bundler.BundleFile), summary.Archive)
	assert.Equal(t, 3, summary.Files)
	require.Len(t, summary.Packages, 1)
	assert.Equal(t, "app", summary.Packages[0].Name)
	assert.Equal(t, 1, summary.Packages[0].Stats.Out.Source)
	assert.FileExists(t, summary.Archive)
}

func TestStripCommand(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "lib")
	require.NoError(t, os.MkdirAll(in, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "mod.py"), []byte("\"\"\"Doc.\"\"\"\nX = 1\n"), 0644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"strip", in})
	require.NoError(t, rootCmd.Execute())

	out := filepath.Join(root, "lib_stripped_no_docstrings")
	data, err := os.ReadFile(filepath.Join(out, "mod.py"))
	require.NoError(t, err)
	assert.Equal(t, "X = 1\n", string(data))
	assert.FileExists(t, out+".zip")
	assert.Contains(t, stdout.String(), out+".zip")
}
