package recorder

// edgeDetector is a Schmitt trigger driven by a dual-envelope tracker,
// adapted from the teacher's Filters/AdaptiveThresholder.go: a fast-attack/
// slow-decay peak tracker and a fast-attack-down/slow-recovery-up floor
// tracker produce a hysteresis band around the signal's midpoint, so the
// HIGH/LOW decision rides the envelope instead of a fixed threshold and
// survives fading carriers (QSB).
//
// This is squarely the "radio front-end debouncing" collaborator SPEC_FULL
// keeps out of internal/categorizer (§1): it lives here, behind
// AudioFrontEnd, and never touches the categorizer package.
type edgeDetector struct {
	maxLevel float64
	minLevel float64

	decayRate float64
	minRange  float64

	state       bool // true while tracking a HIGH interval
	initialized bool
	sampleCount uint64
}

func newEdgeDetector(decayRate, minRange float64) *edgeDetector {
	return &edgeDetector{decayRate: decayRate, minRange: minRange}
}

// thresholds updates the envelope trackers with one sample (expected in
// [0,1], already AGC-normalized) and returns the current hysteresis band.
func (d *edgeDetector) thresholds(sample float64) (high, low float64) {
	if sample > d.maxLevel {
		d.maxLevel = sample
	} else {
		d.maxLevel *= d.decayRate
	}

	if sample < d.minLevel {
		d.minLevel = sample
	} else {
		d.minLevel += (d.maxLevel - d.minLevel) * (1.0 - d.decayRate)
	}

	if d.minLevel > d.maxLevel {
		d.minLevel = d.maxLevel
	}

	dynRange := d.maxLevel - d.minLevel
	if dynRange < d.minRange {
		return 10.0, 9.0
	}

	center := d.minLevel + dynRange*0.5
	hysteresis := dynRange * 0.05
	return center + hysteresis, center - hysteresis
}

// step feeds one envelope sample taken every 1/sampleRate seconds and
// reports a completed edge whenever the Schmitt trigger flips state. The
// returned strength is the 0-255 scaled dynamic range at the moment of the
// flip, used by the recorder as the edge's reliability confidence sample.
func (d *edgeDetector) step(sample float64, sampleRate float64) (ev EdgeEvent, flipped bool) {
	high, low := d.thresholds(sample)
	d.sampleCount++

	wantHigh := d.state
	switch {
	case sample >= high:
		wantHigh = true
	case sample <= low:
		wantHigh = false
	}

	if !d.initialized {
		d.initialized = true
		d.state = wantHigh
		d.sampleCount = 0
		return EdgeEvent{}, false
	}

	if wantHigh == d.state {
		return EdgeEvent{}, false
	}

	durationUs := float64(d.sampleCount) / sampleRate * 1e6
	strength := clampStrength((d.maxLevel - d.minLevel) * 255.0)

	d.state = wantHigh
	d.sampleCount = 0

	return EdgeEvent{Duration: clampDuration(durationUs), Strength: strength}, true
}

func clampDuration(us float64) uint16 {
	if us < 0 {
		return 0
	}
	if us > 64999 {
		return 64999
	}
	return uint16(us)
}

func clampStrength(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
