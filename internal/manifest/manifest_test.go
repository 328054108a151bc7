package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParse covers specifier shapes observed in real manifests.
func TestParse(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"# comment line",
		"",
		"aiogram==3.4.1",
		"playwright>=1.40,<2",
		"requests[socks,security]==2.31.0  # pinned",
		"uvloop; sys_platform != 'win32'",
		"-r extra.txt",
		"--index-url https://pypi.org/simple",
		"colorama",
	}, "\n")

	requirements, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, requirements, 5)

	require.Equal(t, "aiogram", requirements[0].Name)
	require.Equal(t, "==3.4.1", requirements[0].Constraint)

	require.Equal(t, "playwright", requirements[1].Name)
	require.Equal(t, ">=1.40,<2", requirements[1].Constraint)

	require.Equal(t, "requests", requirements[2].Name)
	require.Equal(t, []string{"socks", "security"}, requirements[2].Extras)
	require.Equal(t, "==2.31.0", requirements[2].Constraint)

	require.Equal(t, "uvloop", requirements[3].Name)
	require.Equal(t, "sys_platform != 'win32'", requirements[3].Marker)

	require.Equal(t, "colorama", requirements[4].Name)
	require.Empty(t, requirements[4].Constraint)

	require.Equal(t,
		[]string{"aiogram", "playwright", "requests", "uvloop", "colorama"},
		Names(requirements))
}

// TestLoad reads a manifest from disk and surfaces missing files.
func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")

	require.NoError(t, os.WriteFile(path, []byte("aiogram==3.4.1\n"), 0o600))

	requirements, err := Load(path)
	require.NoError(t, err)
	require.Len(t, requirements, 1)

	_, err = Load(filepath.Join(dir, "absent.txt"))
	require.Error(t, err)
}
