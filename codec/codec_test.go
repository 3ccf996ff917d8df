package codec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfword/configvol/codec"
	"github.com/halfword/configvol/registry"
)

func newTestRegistry(t *testing.T) (*registry.Registry, map[string]string) {
	applied := map[string]string{}
	reg := registry.New()

	require.NoError(t, reg.Register("WIFI_SSID", "unset", "network name", func(v string) bool {
		return len(v) > 0 && len(v) <= 32
	}, func(v string) { applied["WIFI_SSID"] = v }, nil))

	require.NoError(t, reg.Register("WIFI_PASS", "", "network password", func(v string) bool {
		return len(v) <= 64
	}, func(v string) { applied["WIFI_PASS"] = v }, nil))

	return reg, applied
}

func TestNormalizeAcceptsValidLines(t *testing.T) {
	reg, applied := newTestRegistry(t)
	source := []byte("WIFI_SSID=homelab\r\nWIFI_PASS=hunter2\r\n")

	result := codec.Normalize(reg, source)

	assert.False(t, result.Repaired)
	assert.Nil(t, result.Notices)
	assert.Equal(t, "homelab", applied["WIFI_SSID"])
	assert.Equal(t, "hunter2", applied["WIFI_PASS"])
	assert.Contains(t, string(result.Content), "WIFI_SSID=homelab")
	assert.Contains(t, string(result.Content), "WIFI_PASS=hunter2")
}

func TestNormalizeMissingEntryUsesDefault(t *testing.T) {
	reg, applied := newTestRegistry(t)
	source := []byte("WIFI_SSID=homelab\r\n")

	result := codec.Normalize(reg, source)

	assert.True(t, result.Repaired)
	require.NotNil(t, result.Notices)
	assert.Contains(t, result.Notices.Error(), "WIFI_PASS")
	assert.Equal(t, "", applied["WIFI_PASS"])
	assert.Contains(t, string(result.Content), "WIFI_PASS=")
}

func TestNormalizeInvalidValueFallsBackToDefault(t *testing.T) {
	reg, applied := newTestRegistry(t)
	longSSID := strings.Repeat("x", 64)
	source := []byte("WIFI_SSID=" + longSSID + "\r\nWIFI_PASS=ok\r\n")

	result := codec.Normalize(reg, source)

	assert.True(t, result.Repaired)
	assert.Equal(t, "unset", applied["WIFI_SSID"])
	assert.Contains(t, string(result.Content), "WIFI_SSID=unset")
}

func TestNormalizeEmptySourceBootstrapsAllDefaults(t *testing.T) {
	reg, _ := newTestRegistry(t)

	result := codec.Normalize(reg, nil)

	assert.True(t, result.Repaired)
	assert.Contains(t, string(result.Content), "WIFI_SSID=unset")
	assert.Contains(t, string(result.Content), "WIFI_PASS=")
}

func TestNormalizeStopsAtNULByte(t *testing.T) {
	reg, applied := newTestRegistry(t)
	source := []byte("WIFI_SSID=homelab\r\n\x00WIFI_PASS=shouldnotbeseen\r\n")

	result := codec.Normalize(reg, source)

	assert.Equal(t, "homelab", applied["WIFI_SSID"])
	assert.NotEqual(t, "shouldnotbeseen", applied["WIFI_PASS"])
}

func TestNormalizeHonorsCommentMarker(t *testing.T) {
	reg, applied := newTestRegistry(t)
	source := []byte("WIFI_SSID=homelab\t# set by installer\r\nWIFI_PASS=ok\r\n")

	result := codec.Normalize(reg, source)

	assert.Equal(t, "homelab", applied["WIFI_SSID"])
	assert.False(t, result.Repaired)
}

func TestLooksLikeConfigDetectsKnownPrefix(t *testing.T) {
	reg, _ := newTestRegistry(t)

	assert.True(t, codec.LooksLikeConfig([]byte("WIFI_SSID=homelab\r\n"), reg))
	assert.False(t, codec.LooksLikeConfig([]byte("\x00\x00\x00garbage"), reg))
	assert.False(t, codec.LooksLikeConfig(nil, reg))
}
