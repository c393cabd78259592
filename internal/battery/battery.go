// Package battery reads the charge level shown in the board's corner.
package battery

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is where Linux exposes power supplies.
const DefaultRoot = "/sys/class/power_supply"

const (
	emptyMillivolts = 3000
	fullMillivolts  = 4200
)

// Reader reports the charge level in percent, or false when there is no
// battery to report on.
type Reader interface {
	Percent() (int, bool)
}

// Sysfs reads a power_supply directory such as /sys/class/power_supply/BAT0.
type Sysfs struct {
	dir string
}

func NewSysfs(dir string) *Sysfs {
	return &Sysfs{dir: dir}
}

// Detect returns the first supply under root whose type is Battery.
func Detect(root string) (string, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		typ, err := readString(filepath.Join(dir, "type"))
		if err != nil {
			continue
		}
		if strings.EqualFold(typ, "Battery") {
			return dir, true
		}
	}
	return "", false
}

// Percent prefers the kernel's capacity and falls back to a linear estimate
// from voltage_now.
func (s *Sysfs) Percent() (int, bool) {
	if pct, err := readInt(filepath.Join(s.dir, "capacity")); err == nil {
		return clamp(pct), true
	}

	microvolts, err := readInt(filepath.Join(s.dir, "voltage_now"))
	if err != nil {
		return 0, false
	}
	return FromMillivolts(microvolts / 1000), true
}

// FromMillivolts maps 3.0V..4.2V onto 0..100.
func FromMillivolts(mv int) int {
	return clamp((mv - emptyMillivolts) * 100 / (fullMillivolts - emptyMillivolts))
}

func clamp(pct int) int {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

func readString(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func readInt(path string) (int, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// None is used when no battery is present.
type None struct{}

func (None) Percent() (int, bool) { return 0, false }
