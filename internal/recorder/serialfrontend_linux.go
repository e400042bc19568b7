//go:build linux

package recorder

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setRawMode clears canonical mode, echo and signal-generating characters
// on the serial fd so byte-oriented edge-report framing arrives untouched.
// tarm/serial already configures a raw-ish termios on most platforms; this
// makes that explicit and controllable by the front-end rather than left
// to the library's default, which SPEC_FULL.md §11 calls out as the
// generalization this module adds on top of golang.org/x/sys's presence
// as tarm/serial's indirect TTY dependency in the teacher's go.mod.
func setRawMode(path string) error {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return fmt.Errorf("serialfrontend: open %s for termios: %w", path, err)
	}
	defer unix.Close(fd)

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("serialfrontend: get termios: %w", err)
	}

	termios.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ISIG
	termios.Iflag &^= unix.IXON | unix.IXOFF | unix.ICRNL
	termios.Oflag &^= unix.OPOST
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("serialfrontend: set termios: %w", err)
	}
	return nil
}
