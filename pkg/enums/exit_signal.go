package enums

import "fmt"

// ExitSignal is a client-observed hint that the visitor is about to leave.
type ExitSignal string

const (
	ExitSignalBackNavigation ExitSignal = "back_navigation"
	ExitSignalPointerExitTop ExitSignal = "pointer_exit_top"
	ExitSignalTabReturn      ExitSignal = "tab_return"
)

var validExitSignals = []ExitSignal{
	ExitSignalBackNavigation,
	ExitSignalPointerExitTop,
	ExitSignalTabReturn,
}

// String implements fmt.Stringer.
func (e ExitSignal) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExitSignal.
func (e ExitSignal) IsValid() bool {
	for _, candidate := range validExitSignals {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExitSignal converts raw input into an ExitSignal.
func ParseExitSignal(value string) (ExitSignal, error) {
	for _, candidate := range validExitSignals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exit signal %q", value)
}
