package recorder

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/tarm/serial"

	"github.com/ookcat/ookcat/internal/config"
)

// Wire framing for the edge-report protocol a CI-V-style serial radio link
// emits: a companion GPIO-over-serial carrier-detect line toggles HIGH/LOW,
// and the radio periodically reports its received signal strength in the
// same preamble/terminator framing the teacher's civ.go uses for command
// frames (civPreamble/civEnd), repurposed here to carry edge reports rather
// than CI-V commands.
const (
	edgePreamble = 0xFE
	edgeEnd      = 0xFD
	edgeFrameLen = 6 // preamble, duration_hi, duration_lo, strength, polarity, end
)

// SerialFrontEnd derives HIGH/LOW edges from a serial radio's
// carrier-detect/strength reporting link, the generalization of the
// teacher's civ.go CIVClient to an arbitrary OOK receiver rather than one
// ICOM radio's CI-V command/response protocol.
type SerialFrontEnd struct {
	cfg  config.SerialFrontEndConfig
	port io.ReadWriteCloser
}

// NewSerialFrontEnd opens the serial port and puts it into raw mode so
// byte-level edge-report framing isn't mangled by line discipline
// processing (canonical mode, echo, signal characters).
func NewSerialFrontEnd(cfg config.SerialFrontEndConfig) (*SerialFrontEnd, error) {
	sc := &serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
	}
	port, err := serial.OpenPort(sc)
	if err != nil {
		return nil, fmt.Errorf("serialfrontend: open %s: %w", cfg.Port, err)
	}
	if err := setRawMode(cfg.Port); err != nil {
		// Non-fatal: tarm/serial already disables canonical mode on most
		// platforms, this only tightens up timing-sensitive edge cases
		// (see setRawMode's build-tagged implementation).
		_ = err
	}
	return &SerialFrontEnd{cfg: cfg, port: port}, nil
}

// newSerialFrontEndFromConn is the test seam: it skips opening a real
// serial device and drives the frame parser off any io.ReadWriteCloser,
// e.g. a fake buffer in serialfrontend_test.go.
func newSerialFrontEndFromConn(cfg config.SerialFrontEndConfig, conn io.ReadWriteCloser) *SerialFrontEnd {
	return &SerialFrontEnd{cfg: cfg, port: conn}
}

func (f *SerialFrontEnd) Edges(ctx context.Context) (<-chan EdgeEvent, error) {
	events := make(chan EdgeEvent, 64)
	reader := bufio.NewReaderSize(f.port, 4096)

	go func() {
		defer close(events)
		for {
			if ctx.Err() != nil {
				return
			}
			frame, err := readEdgeFrame(reader)
			if err != nil {
				return
			}
			duration := uint16(frame[1])<<8 | uint16(frame[2])
			strength := frame[3]
			if strength == 0 && duration == 0 {
				// explicit idle/abort marker, not a real edge
				return
			}
			select {
			case events <- EdgeEvent{Duration: duration, Strength: strength}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func readEdgeFrame(r *bufio.Reader) ([edgeFrameLen]byte, error) {
	var frame [edgeFrameLen]byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return frame, err
		}
		if b != edgePreamble {
			continue
		}
		frame[0] = b
		for i := 1; i < edgeFrameLen; i++ {
			b, err := r.ReadByte()
			if err != nil {
				return frame, err
			}
			frame[i] = b
		}
		if frame[edgeFrameLen-1] == edgeEnd {
			return frame, nil
		}
		// resync: drop this frame's bytes and scan onward for the next preamble
	}
}

func (f *SerialFrontEnd) Close() error {
	if f.port != nil {
		return f.port.Close()
	}
	return nil
}
