//go:build !linux

package recorder

// setRawMode is a best-effort tightening of the serial port's line
// discipline; golang.org/x/sys/unix's termios ioctls are Linux-specific
// (BSD/Darwin use a different struct layout), so other platforms fall back
// to whatever tarm/serial already configured.
func setRawMode(path string) error {
	return nil
}
