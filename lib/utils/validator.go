package utils

import (
	"fmt"
	"strconv"

	"cdn-blocker/lib/errdefs"
)

// ParsePort converts the given string to a port number, rejecting anything
// outside 1-65535 without side effects.
func ParsePort(str string) (int, error) {
	port, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errdefs.ErrInvalidPort, str)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %d is out of range 1-65535", errdefs.ErrInvalidPort, port)
	}
	return port, nil
}
