package allocation

import (
	"fmt"
	"strings"
)

// Mode selects the objective used by FirstAllocation.
type Mode int

const (
	// ModeThroughput maximizes tasks completed per unit of time.
	ModeThroughput Mode = iota
	// ModeWaste minimizes resource-time wasted by over-allocation and retries.
	ModeWaste
	// ModeFixed provisions for the largest value seen, so nothing is retried.
	ModeFixed
)

var modeNames = map[Mode]string{
	ModeThroughput: "throughput",
	ModeWaste:      "waste",
	ModeFixed:      "fixed",
}

// Modes returns every mode in report order.
func Modes() []Mode {
	return []Mode{ModeThroughput, ModeWaste, ModeFixed}
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a mode name (as found in flags or config files) into a Mode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Modes() {
		if modeNames[m] == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w %q (expected one of throughput, waste, fixed)", ErrUnsupportedMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
