package rotation

import (
	"fmt"
	"strings"
)

// Mode selects the source an actor turns toward.
type Mode int

const (
	ModeDirection Mode = iota
	ModePosition
	ModeTarget
	ModeCamera
	ModeCustom
)

var modeNames = [...]string{
	ModeDirection: "direction",
	ModePosition:  "position",
	ModeTarget:    "target",
	ModeCamera:    "camera",
	ModeCustom:    "custom",
}

func (m Mode) Valid() bool {
	return m >= ModeDirection && m <= ModeCustom
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode accepts the names produced by Mode.String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return ModeDirection, fmt.Errorf("unknown rotation mode %q", s)
}

// Modes lists every mode in declaration order.
func Modes() []Mode {
	return []Mode{ModeDirection, ModePosition, ModeTarget, ModeCamera, ModeCustom}
}
