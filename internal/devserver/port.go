package devserver

import (
	"fmt"
	"net"
)

// PortExhaustionError reports that no free port was found in the probed
// range.
type PortExhaustionError struct {
	Start    int
	Attempts int
}

func (e *PortExhaustionError) Error() string {
	return fmt.Sprintf("no free port in range %d-%d", e.Start, e.Start+e.Attempts-1)
}

// FindAvailablePort probes ports sequentially starting at start by
// attempting a transient bind, returning the first port that binds.
// After maxAttempts failures it returns a PortExhaustionError.
func FindAvailablePort(start, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := start + i
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		if err := l.Close(); err != nil {
			continue
		}
		return port, nil
	}
	return 0, &PortExhaustionError{Start: start, Attempts: maxAttempts}
}
