package battery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSupply(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for file, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
	}
	return dir
}

func TestFromMillivolts(t *testing.T) {
	tests := []struct {
		mv   int
		want int
	}{
		{2800, 0},
		{3000, 0},
		{3600, 50},
		{4200, 100},
		{4350, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromMillivolts(tt.mv), "mv=%d", tt.mv)
	}
}

func TestSysfs_Capacity(t *testing.T) {
	dir := writeSupply(t, t.TempDir(), "BAT0", map[string]string{
		"capacity":    "87\n",
		"voltage_now": "3100000\n",
	})

	pct, ok := NewSysfs(dir).Percent()
	require.True(t, ok)
	assert.Equal(t, 87, pct)
}

func TestSysfs_CapacityClamped(t *testing.T) {
	dir := writeSupply(t, t.TempDir(), "BAT0", map[string]string{"capacity": "104"})

	pct, ok := NewSysfs(dir).Percent()
	require.True(t, ok)
	assert.Equal(t, 100, pct)
}

func TestSysfs_VoltageFallback(t *testing.T) {
	dir := writeSupply(t, t.TempDir(), "BAT0", map[string]string{"voltage_now": "3900000"})

	pct, ok := NewSysfs(dir).Percent()
	require.True(t, ok)
	assert.Equal(t, 75, pct)
}

func TestSysfs_Missing(t *testing.T) {
	_, ok := NewSysfs(filepath.Join(t.TempDir(), "nope")).Percent()
	assert.False(t, ok)
}

func TestDetect(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", map[string]string{"type": "Mains\n"})
	want := writeSupply(t, root, "BAT1", map[string]string{"type": "Battery\n"})

	dir, ok := Detect(root)
	require.True(t, ok)
	assert.Equal(t, want, dir)
}

func TestDetect_NoBattery(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", map[string]string{"type": "Mains"})

	_, ok := Detect(root)
	assert.False(t, ok)

	_, ok = Detect(filepath.Join(root, "missing"))
	assert.False(t, ok)
}

func TestNone(t *testing.T) {
	_, ok := None{}.Percent()
	assert.False(t, ok)
}
