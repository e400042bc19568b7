package recorder

import (
	"context"

	"github.com/ookcat/ookcat/internal/config"
)

// WAVReplayFrontEnd replays a WAV file of an already-demodulated OOK
// envelope (amplitude proportional to carrier presence, not raw RF/audio
// tone) through the same Schmitt-trigger edgeDetector AudioFrontEnd uses,
// so a captured receiver session can be fed back through the recorder and
// categorizer without live hardware. This is the "WAV/trace-file replay"
// front-end SPEC_FULL.md §6.4 calls for, built on the teacher's
// wav_reader.go (see wavreplay.go).
type WAVReplayFrontEnd struct {
	reader   *wavReader
	detector *edgeDetector
	blockLen int
}

func NewWAVReplayFrontEnd(cfg config.ReplayFrontEndConfig) (*WAVReplayFrontEnd, error) {
	r, err := newWAVReader(cfg.Path)
	if err != nil {
		return nil, err
	}
	return &WAVReplayFrontEnd{
		reader:   r,
		detector: newEdgeDetector(0.9995, 0.1),
		blockLen: 64,
	}, nil
}

func (f *WAVReplayFrontEnd) Edges(ctx context.Context) (<-chan EdgeEvent, error) {
	events := make(chan EdgeEvent, 64)

	go func() {
		defer close(events)
		for {
			if ctx.Err() != nil {
				return
			}
			block, err := f.reader.readBlock(f.blockLen)
			if err != nil {
				return
			}
			for _, sample := range block {
				level := sample
				if level < 0 {
					level = -level
				}
				if ev, flipped := f.detector.step(level, float64(f.reader.sampleRate)); flipped {
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return events, nil
}

func (f *WAVReplayFrontEnd) Close() error {
	return f.reader.Close()
}
