// Command ookcat assembles an OOK HIGH/LOW duration trace from a front-end
// and runs it through the categorizer, printing the categorized sequence.
// It is the ambient CLI glue SPEC_FULL.md §2 describes; it contains no
// protocol or bit decoding of its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ookcat/ookcat/internal/categorizer"
	"github.com/ookcat/ookcat/internal/config"
	"github.com/ookcat/ookcat/internal/recorder"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	frontEndKind := flag.String("frontend", "", "front-end kind: serial, audio, replay (overrides config)")
	replayPath := flag.String("replay", "", "path to a replay trace or WAV file (implies -frontend=replay)")
	flag.Parse()

	logger := log.New(os.Stderr, "ookcat: ", log.LstdFlags)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *frontEndKind != "" {
		cfg.FrontEnd.Kind = *frontEndKind
	}
	if *replayPath != "" {
		cfg.FrontEnd.Kind = "replay"
		cfg.FrontEnd.Replay.Path = *replayPath
	}

	fe, err := buildFrontEnd(cfg.FrontEnd)
	if err != nil {
		logger.Fatalf("build front-end: %v", err)
	}
	defer fe.Close()

	rec := recorder.New(cfg.Recorder, logger)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// One trace per run, mirroring the teacher's cmd/main.go single
	// Start/Stop lifecycle; a long-running daemon would wrap this call in
	// a loop that re-arms reception after each trace the way
	// system.go's runReplayLoop does, logging and continuing on error
	// instead of exiting.
	if err := runOnce(ctx, rec, fe, cfg, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

func buildFrontEnd(cfg config.FrontEndConfig) (recorder.FrontEnd, error) {
	switch cfg.Kind {
	case "serial":
		return recorder.NewSerialFrontEnd(cfg.Serial)
	case "audio":
		return recorder.NewAudioFrontEnd(cfg.Audio)
	case "replay":
		return recorder.NewReplayFrontEndFor(cfg.Replay)
	default:
		return nil, fmt.Errorf("unknown front-end kind %q (want serial, audio or replay)", cfg.Kind)
	}
}

func runOnce(ctx context.Context, rec *recorder.Recorder, fe recorder.FrontEnd, cfg *config.Config, logger *log.Logger) error {
	rs, err := rec.Record(ctx, fe)
	if err != nil {
		return fmt.Errorf("record trace: %w", err)
	}
	logger.Printf("recorded %d durations (%d unreliable), end reason: %s", rs.Count, rs.UnreliableCount, rs.EndReason)

	var scratch categorizer.Scratch
	z, trustworthiness, rc := categorizer.Categorize(rs.V, rs.Count, rs.UnreliableCount, &scratch)
	if rc != categorizer.CodeOK {
		if rc.Fatal() {
			logger.Printf("categorizer internal invariant violation: %v (trace abandoned)", rc)
		} else {
			logger.Printf("categorizer could not process trace: %v (trace abandoned)", rc)
		}
		return nil
	}
	logger.Printf("categorized with trustworthiness=%d/1000", trustworthiness)

	categorizer.PrintSequence(os.Stdout, z, rs.V, rs.Count)
	if cfg.Categorizer.PrintCategoryTable {
		categorizer.PrintCategories(os.Stdout, &z[categorizer.High], rs.V)
		categorizer.PrintCategories(os.Stdout, &z[categorizer.Low], rs.V)
	}
	return nil
}
