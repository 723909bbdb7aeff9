package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"
)

func readJSONTemplate(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var root map[string]any
	require.NoError(t, json.Unmarshal(data, &root))
	return root
}

func TestConfigInitListen(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "listen.json")
	require.NoError(t, (&ConfigInit{Command: "listen", Format: "json", Output: dest}).Run())

	root := readJSONTemplate(t, dest)
	radio := root["radio"].(map[string]any)
	assert.EqualValues(t, 1, radio["group"])
	assert.EqualValues(t, 7, radio["band"])
	udp := radio["udp"].(map[string]any)
	assert.Equal(t, "255.255.255.255", udp["broadcast"])
	assert.EqualValues(t, 47600, udp["base_port"])

	pairing := root["pairing"].(map[string]any)
	assert.Equal(t, "10s", pairing["window"])
	assert.Equal(t, "300ms", pairing["probe_interval"])
	assert.Equal(t, true, pairing["accept_when_never_paired"])

	api := root["api"].(map[string]any)
	assert.Equal(t, ":3243", api["addr"])
	assert.Equal(t, true, api["require_auth"])
	assert.Equal(t, "auto", root["display"])
	assert.NotContains(t, root, "help")
	assert.NotContains(t, root, "image_map")

	err := (&ConfigInit{Command: "listen", Format: "json", Output: dest}).Run()
	assert.ErrorContains(t, err, "destination exists")
	assert.NoError(t, (&ConfigInit{Command: "listen", Format: "json", Output: dest, Force: true}).Run())
}

func TestConfigInitReadsEnvironment(t *testing.T) {
	t.Setenv("RCRX_RADIO_BAND", "12")
	t.Setenv("RCRX_PAIRING_WINDOW", "30s")
	dest := filepath.Join(t.TempDir(), "listen.json")
	require.NoError(t, (&ConfigInit{Command: "listen", Format: "json", Output: dest}).Run())

	root := readJSONTemplate(t, dest)
	assert.EqualValues(t, 12, root["radio"].(map[string]any)["band"])
	assert.Equal(t, "30s", root["pairing"].(map[string]any)["window"])
}

func TestConfigInitJSONLoadsBack(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "listen.json")
	require.NoError(t, (&ConfigInit{Command: "listen", Format: "json", Output: dest}).Run())

	root := readJSONTemplate(t, dest)
	root["pairing"].(map[string]any)["probe_interval"] = "450ms"
	root["radio"].(map[string]any)["group"] = 42
	data, err := json.Marshal(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dest, data, 0o644))

	var l Listen
	parser, err := kong.New(&l, kong.Configuration(kong.JSON, dest), kong.Exit(func(int) {}))
	require.NoError(t, err)
	_, err = parser.Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, 450*time.Millisecond, l.Pairing.ProbeInterval)
	assert.Equal(t, uint8(42), l.Radio.Group)
	assert.Equal(t, 10*time.Second, l.Pairing.Window)
}

func TestConfigInitTransmitYAML(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "transmit.yaml")
	require.NoError(t, (&ConfigInit{Command: "transmit", Format: "yml", Output: dest}).Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Button keys in bit order")

	var root map[string]any
	require.NoError(t, yaml.Unmarshal(data, &root))
	assert.Equal(t, []any{"A", "B"}, root["keys"])
	assert.NotContains(t, root, "press")
	assert.Equal(t, "100ms", root["interval"])
	assert.Equal(t, 60, root["strength"])
	assert.Equal(t, 7, root["radio"].(map[string]any)["band"])
}

func TestConfigInitTOML(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "listen.toml")
	require.NoError(t, (&ConfigInit{Command: "listen", Format: "toml", Output: dest}).Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# How long the pairing window stays open")
	assert.Contains(t, string(data), "probe_interval")
	assert.Contains(t, string(data), "pairing")
}

func TestConfigInitRejectsUnknown(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorContains(t, (&ConfigInit{Command: "listen", Format: "ini", Output: filepath.Join(dir, "x")}).Run(), "unsupported format")
	assert.ErrorContains(t, (&ConfigInit{Command: "server", Format: "json", Output: filepath.Join(dir, "y")}).Run(), "unknown command")
}
