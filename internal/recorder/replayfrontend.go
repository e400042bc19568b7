package recorder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ookcat/ookcat/internal/config"
)

// NewReplayFrontEndFor builds whichever replay front-end fits cfg.Path: a
// WAV envelope capture if the extension says so, otherwise the plain-text
// edge-report trace format.
func NewReplayFrontEndFor(cfg config.ReplayFrontEndConfig) (FrontEnd, error) {
	if strings.HasSuffix(strings.ToLower(cfg.Path), ".wav") {
		return NewWAVReplayFrontEnd(cfg)
	}
	return NewReplayFrontEnd(cfg)
}

// ReplayFrontEnd plays back a previously captured or synthetically
// generated edge trace, the generalization of the teacher's
// SetReplayFile/runReplayLoop WAV replay to a plain text edge-report file
// (duration,strength pairs) so tests and demos don't need a WAV fixture to
// exercise the recorder and categorizer end to end.
//
// File format: one edge per line, "duration strength", e.g. "412 220".
// A blank line or EOF closes the edge channel, which the recorder records
// as a forced end; lines are otherwise fed at cfg.Speed (1.0 = real time,
// 0 = as fast as possible).
type ReplayFrontEnd struct {
	cfg config.ReplayFrontEndConfig
	r   io.Reader
}

// NewReplayFrontEnd opens cfg.Path for replay.
func NewReplayFrontEnd(cfg config.ReplayFrontEndConfig) (*ReplayFrontEnd, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("replayfrontend: open %s: %w", cfg.Path, err)
	}
	return &ReplayFrontEnd{cfg: cfg, r: f}, nil
}

// NewReplayFrontEndFromReader is the in-memory variant: it replays edges
// from any io.Reader instead of a file path.
func NewReplayFrontEndFromReader(cfg config.ReplayFrontEndConfig, r io.Reader) *ReplayFrontEnd {
	return &ReplayFrontEnd{cfg: cfg, r: r}
}

func (f *ReplayFrontEnd) Edges(ctx context.Context) (<-chan EdgeEvent, error) {
	events := make(chan EdgeEvent, 64)
	scanner := bufio.NewScanner(f.r)

	go func() {
		defer close(events)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				return
			}
			fields := strings.Fields(line)
			if len(fields) < 1 {
				continue
			}
			duration, err := strconv.ParseUint(fields[0], 10, 16)
			if err != nil {
				continue
			}
			var strength uint64
			if len(fields) >= 2 {
				strength, _ = strconv.ParseUint(fields[1], 10, 8)
			}

			ev := EdgeEvent{Duration: uint16(duration), Strength: uint8(strength)}
			if f.cfg.Speed > 0 {
				time.Sleep(time.Duration(float64(duration) / f.cfg.Speed * float64(time.Microsecond)))
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (f *ReplayFrontEnd) Close() error {
	if c, ok := f.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
