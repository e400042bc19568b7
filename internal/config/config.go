// Package config loads the YAML-backed configuration shared by cmd/ookcat
// and internal/recorder.
//
// It follows the teacher repo's DefaultConfig()-plus-unmarshal pattern: a
// complete set of defaults is built first, then a YAML document (if any) is
// unmarshalled on top of it, so a partial or missing config file still
// yields every field populated.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level document. Its three sections map onto the
// repository shape described in SPEC_FULL.md §2: a front-end, the recorder
// that assembles a trace from it, and the categorizer section (the
// categorizer package itself reads no config; its section holds only an
// output option for cmd/ookcat).
type Config struct {
	FrontEnd   FrontEndConfig   `yaml:"front_end"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	Categorizer CategorizerConfig `yaml:"categorizer"`
}

// FrontEndConfig selects and tunes one of the concrete FrontEnd
// implementations in internal/recorder.
type FrontEndConfig struct {
	// Kind is one of "serial", "audio", "replay".
	Kind string `yaml:"kind"`

	Serial SerialFrontEndConfig `yaml:"serial"`
	Audio  AudioFrontEndConfig  `yaml:"audio"`
	Replay ReplayFrontEndConfig `yaml:"replay"`
}

type SerialFrontEndConfig struct {
	Port       string        `yaml:"port"`
	BaudRate   int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// StrengthThreshold is a carrier-detect/RSSI byte value (0-255).
	// SerialFrontEnd does not read it; the recorder's reliability decision
	// uses RecorderConfig.StrengthThreshold for every front-end.
	StrengthThreshold uint8 `yaml:"strength_threshold"`
}

type AudioFrontEndConfig struct {
	SampleRate   int     `yaml:"sample_rate"`
	DeviceName   string  `yaml:"device_name"`
	FFTSize      int     `yaml:"fft_size"`
	MinFrequency float64 `yaml:"min_frequency_hz"`
	MaxFrequency float64 `yaml:"max_frequency_hz"`
	DecayRate    float64 `yaml:"decay_rate"`
	MinRange     float64 `yaml:"min_range"`
}

type ReplayFrontEndConfig struct {
	Path string `yaml:"path"`
	// Speed scales the replayed edge timing; 1.0 plays back at the
	// recorded rate, 0 plays back as fast as possible.
	Speed float64 `yaml:"speed"`
}

// RecorderConfig tunes the edge-trace -> RecordedSignals assembly in
// internal/recorder, grounded on original_source/recorder.cpp (see
// SPEC_FULL.md §12).
type RecorderConfig struct {
	// WarmupEdges is the number of leading edges not yet trusted for
	// reliability classification while timing statistics settle.
	WarmupEdges int `yaml:"warmup_edges"`
	// MaxConsecutiveUnreliable is the longest run of consecutive
	// unreliable signals the recorder tolerates within one burst
	// (original_source/recorder.cpp's hardcoded "> 3", RRC_12/RRC_13)
	// before aborting reception with a forced end; the separate,
	// non-configurable three-reliable-signal gap between bursts is
	// enforced unconditionally (see minConsecutiveReliable).
	MaxConsecutiveUnreliable int `yaml:"max_consecutive_unreliable"`
	// StrengthThreshold is the carrier-strength confidence cutoff: once
	// warm-up is over, an edge whose strength is below it is unreliable.
	// No front-end config overrides it.
	StrengthThreshold uint8 `yaml:"strength_threshold"`
	// EndOfTracePause is how long a LOW must run for the recorder to
	// decide the trace ended normally rather than being aborted.
	EndOfTracePause time.Duration `yaml:"end_of_trace_pause"`
	// MaxDurations bounds the recorded payload length (index of the last
	// LOW); it must not exceed the categorizer's nv-2 capacity.
	MaxDurations int `yaml:"max_durations"`
}

// CategorizerConfig holds cmd/ookcat's categorizer output option.
// Categorize itself takes no configuration; everything about the
// categorizer is fixed by SPEC_FULL.md's table dimensions.
type CategorizerConfig struct {
	// PrintCategoryTable toggles whether cmd/ookcat also emits the
	// diagnostic PrintCategories companion table after PrintSequence.
	PrintCategoryTable bool `yaml:"print_category_table"`
}

// DefaultConfig returns a complete configuration using the same tunables
// the teacher's cmd/main.go hard-codes as NewCWSystem defaults (sample
// rate, device name, serial port/baud), generalized to the OOK domain.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.FrontEnd.Kind = "replay"

	cfg.FrontEnd.Serial.Port = "/dev/tty.SLAB_USBtoUART"
	cfg.FrontEnd.Serial.BaudRate = 115200
	cfg.FrontEnd.Serial.ReadTimeout = 500 * time.Millisecond
	cfg.FrontEnd.Serial.StrengthThreshold = 40

	cfg.FrontEnd.Audio.SampleRate = 48000
	cfg.FrontEnd.Audio.DeviceName = "USB Audio CODEC"
	cfg.FrontEnd.Audio.FFTSize = 4096
	cfg.FrontEnd.Audio.MinFrequency = 600.0
	cfg.FrontEnd.Audio.MaxFrequency = 900.0
	cfg.FrontEnd.Audio.DecayRate = 0.9995
	cfg.FrontEnd.Audio.MinRange = 0.2

	cfg.FrontEnd.Replay.Speed = 1.0

	cfg.Recorder.WarmupEdges = 16
	cfg.Recorder.MaxConsecutiveUnreliable = 3
	cfg.Recorder.StrengthThreshold = 40
	cfg.Recorder.EndOfTracePause = 3 * time.Second
	cfg.Recorder.MaxDurations = 510

	cfg.Categorizer.PrintCategoryTable = true

	return cfg
}

// LoadConfig reads path and unmarshals it over DefaultConfig(), so any
// field the document omits keeps its default value. An empty path returns
// the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
