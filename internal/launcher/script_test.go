package launcher

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultOpts = Options{VenvDir: "venv", EntryPoint: "src/telegram_bot.py"}

func TestRender(t *testing.T) {
	text, err := Render(defaultOpts)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "#!/bin/sh\n"))
	assert.Contains(t, text, `. "$SCRIPT_DIR/venv/bin/activate"`)
	assert.Contains(t, text, `exec python "$SCRIPT_DIR/src/telegram_bot.py"`)
	assert.Contains(t, text, `cd "$SCRIPT_DIR"`)
}

func TestRender_RejectsAbsolutePaths(t *testing.T) {
	_, err := Render(Options{VenvDir: "/opt/venv", EntryPoint: "bot.py"})
	assert.Error(t, err)
	_, err = Render(Options{VenvDir: "venv"})
	assert.Error(t, err)
}

func TestEnsure_WritesExecutableScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "start.sh")

	wrote, err := NewWriter(defaultOpts).Ensure(path, false)
	require.NoError(t, err)
	assert.True(t, wrote)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0100, "owner execute bit set")
}

func TestEnsure_KeepsExistingButRestoresExecBit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "start.sh")
	custom := "#!/bin/sh\necho customized\n"
	require.NoError(t, os.WriteFile(path, []byte(custom), 0644))

	wrote, err := NewWriter(defaultOpts).Ensure(path, false)
	require.NoError(t, err)
	assert.False(t, wrote)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestEnsure_ForceOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "start.sh")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0700))

	wrote, err := NewWriter(defaultOpts).Ensure(path, true)
	require.NoError(t, err)
	assert.True(t, wrote)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exec python")
}

func TestEnsure_UnwritableDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "start.sh")

	_, err := NewWriter(defaultOpts).Ensure(path, false)
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, path, writeErr.Path)
}

// The generated script must exec the entry point from its own directory
// regardless of the caller's working directory.
func TestGeneratedScriptRuns(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	binDir := filepath.Join(dir, "venv", "bin")
	require.NoError(t, os.MkdirAll(binDir, 0755))
	// A fake venv whose "python" prints the working directory and script.
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "activate"),
		[]byte("PATH=\""+binDir+":$PATH\"\nexport PATH\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "python"),
		[]byte("#!/bin/sh\necho \"$(pwd) $1\"\n"), 0755))

	path := filepath.Join(dir, "start.sh")
	_, err := NewWriter(Options{VenvDir: "venv", EntryPoint: "bot.py"}).Ensure(path, false)
	require.NoError(t, err)

	cmd := exec.Command(path)
	cmd.Dir = os.TempDir()
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))

	assert.Equal(t, dir+" "+filepath.Join(dir, "bot.py"), strings.TrimSpace(string(out)))
}
