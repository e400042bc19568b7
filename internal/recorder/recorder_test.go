package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/ookcat/ookcat/internal/categorizer"
	"github.com/ookcat/ookcat/internal/config"
)

// fakeFrontEnd drives a recorder with a pre-scripted edge sequence,
// following civ_test.go's MockSerialPort style: a hand-written fake, no
// mocking framework.
type fakeFrontEnd struct {
	edges []EdgeEvent
}

func (f *fakeFrontEnd) Edges(ctx context.Context) (<-chan EdgeEvent, error) {
	ch := make(chan EdgeEvent, len(f.edges))
	for _, e := range f.edges {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func (f *fakeFrontEnd) Close() error { return nil }

// stallingFrontEnd delivers its scripted edges and then goes silent
// without closing the channel, standing in for a live front-end whose
// carrier simply stops without the underlying connection ever erroring
// out — the case EndOfTracePause exists to catch.
type stallingFrontEnd struct {
	edges []EdgeEvent
}

func (f *stallingFrontEnd) Edges(ctx context.Context) (<-chan EdgeEvent, error) {
	ch := make(chan EdgeEvent)
	go func() {
		for _, e := range f.edges {
			select {
			case ch <- e:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return ch, nil
}

func (f *stallingFrontEnd) Close() error { return nil }

func TestRecorderForcedEndOnClosedChannel(t *testing.T) {
	fe := &fakeFrontEnd{edges: []EdgeEvent{
		{Duration: 400, Strength: 200},
		{Duration: 1200, Strength: 200},
		{Duration: 410, Strength: 200},
	}}
	r := New(config.RecorderConfig{StrengthThreshold: 40, MaxDurations: 100}, nil)

	rs, err := r.Record(context.Background(), fe)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rs.EndReason != ForcedEnd {
		t.Fatalf("EndReason = %v, want ForcedEnd", rs.EndReason)
	}
	n := len(rs.V)
	if rs.V[n-1] != 0 || rs.V[n-2] != 0 {
		t.Fatalf("forced-end sentinel = (%d, %d), want (0, 0)", rs.V[n-2], rs.V[n-1])
	}
}

func TestRecorderNormalEndOnLowTimeout(t *testing.T) {
	fe := &fakeFrontEnd{edges: []EdgeEvent{
		{Duration: 400, Strength: 200},
		{Duration: 1200, Strength: 200},
		{Duration: 410, Strength: 200},
		{TimedOut: true},
	}}
	r := New(config.RecorderConfig{StrengthThreshold: 40, MaxDurations: 100}, nil)

	rs, err := r.Record(context.Background(), fe)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rs.EndReason != NormalEnd {
		t.Fatalf("EndReason = %v, want NormalEnd", rs.EndReason)
	}
	n := len(rs.V)
	if rs.V[n-1] != categorizer.Ceil {
		t.Fatalf("normal-end sentinel ceil = %d, want %d", rs.V[n-1], categorizer.Ceil)
	}
}

func TestRecorderEndsTraceOnIdleTimeoutWithNoFrontEndCooperation(t *testing.T) {
	fe := &stallingFrontEnd{edges: []EdgeEvent{
		{Duration: 400, Strength: 200},
		{Duration: 1200, Strength: 200},
		{Duration: 410, Strength: 200},
	}}
	r := New(config.RecorderConfig{
		StrengthThreshold: 40,
		MaxDurations:      100,
		EndOfTracePause:   20 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs, err := r.Record(ctx, fe)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rs.EndReason != NormalEnd {
		t.Fatalf("EndReason = %v, want NormalEnd", rs.EndReason)
	}
	n := len(rs.V)
	if rs.V[n-1] != categorizer.Ceil {
		t.Fatalf("normal-end sentinel ceil = %d, want %d", rs.V[n-1], categorizer.Ceil)
	}
}

// assertNoConsecutiveUnreliableGapViolation walks the recorded payload (the
// 1-indexed range [1, count]) and fails the test if an unreliable burst (a
// run of consecutive unreliable values) starts after fewer than three
// consecutive reliable values since the previous burst, spec.md §3.1's
// invariant. Consecutive unreliable values inside one burst are allowed.
func assertNoConsecutiveUnreliableGapViolation(t *testing.T, v []uint16, count uint16) {
	t.Helper()
	reliableRun := 1000 // no unreliable value has been seen yet; treat as satisfied
	inBurst := false
	for i := uint16(1); i <= count; i++ {
		if v[i]&1 == 1 {
			if !inBurst && reliableRun < 3 {
				t.Fatalf("unreliable burst at index %d follows only %d consecutive reliable values, want >= 3: %v", i, reliableRun, v[1:count+1])
			}
			inBurst = true
			reliableRun = 0
		} else {
			inBurst = false
			reliableRun++
		}
	}
}

func TestRecorderEnforcesConsecutiveReliableGapBeforeNewUnreliableBurst(t *testing.T) {
	fe := &fakeFrontEnd{edges: []EdgeEvent{
		{Duration: 400, Strength: 200},
		{Duration: 1200, Strength: 200},
		{Duration: 400, Strength: 200}, // warm-up establishes 3 consecutive reliable
		{Duration: 1200, Strength: 0},  // unreliable: starts a burst, gap was satisfied
		{Duration: 400, Strength: 200}, // only one reliable signal since the last burst
		{Duration: 1200, Strength: 0},  // a second burst starting too soon: must abort
		{Duration: 400, Strength: 200},
	}}
	r := New(config.RecorderConfig{
		StrengthThreshold:        40,
		WarmupEdges:              3,
		MaxConsecutiveUnreliable: 3,
		MaxDurations:             100,
	}, nil)

	rs, err := r.Record(context.Background(), fe)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rs.EndReason != ForcedEnd {
		t.Fatalf("EndReason = %v, want ForcedEnd (gap violation must abort reception)", rs.EndReason)
	}
	// the violating sixth edge must never have been appended
	if rs.Count != 5 {
		t.Fatalf("Count = %d, want 5 (trace truncated before the gap violation)", rs.Count)
	}
	assertNoConsecutiveUnreliableGapViolation(t, rs.V, rs.Count)
}

func TestRecorderEnforcesConsecutiveUnreliableBurstLengthLimit(t *testing.T) {
	fe := &fakeFrontEnd{edges: []EdgeEvent{
		{Duration: 400, Strength: 200},
		{Duration: 1200, Strength: 200},
		{Duration: 400, Strength: 200}, // warm-up establishes 3 consecutive reliable
		{Duration: 1200, Strength: 0},  // unreliable burst: 1
		{Duration: 400, Strength: 0},   // 2
		{Duration: 1200, Strength: 0},  // 3
		{Duration: 400, Strength: 0},   // 4: exceeds MaxConsecutiveUnreliable=3, must abort
	}}
	r := New(config.RecorderConfig{
		StrengthThreshold:        40,
		WarmupEdges:              3,
		MaxConsecutiveUnreliable: 3,
		MaxDurations:             100,
	}, nil)

	rs, err := r.Record(context.Background(), fe)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rs.EndReason != ForcedEnd {
		t.Fatalf("EndReason = %v, want ForcedEnd (burst-length violation must abort reception)", rs.EndReason)
	}
	if rs.Count != 6 {
		t.Fatalf("Count = %d, want 6 (trace truncated before the fourth consecutive unreliable value)", rs.Count)
	}
	assertNoConsecutiveUnreliableGapViolation(t, rs.V, rs.Count)
}

func TestRecorderToleratesProperlySpacedUnreliableBursts(t *testing.T) {
	edges := []EdgeEvent{
		{Duration: 400, Strength: 200},
		{Duration: 1200, Strength: 200},
		{Duration: 400, Strength: 200}, // warm-up establishes 3 consecutive reliable
	}
	for i := 0; i < 10; i++ {
		edges = append(edges,
			EdgeEvent{Duration: 1200, Strength: 0},   // one unreliable value
			EdgeEvent{Duration: 400, Strength: 200},  // >= 3 reliable values before the next burst
			EdgeEvent{Duration: 1200, Strength: 200},
			EdgeEvent{Duration: 400, Strength: 200},
		)
	}
	fe := &fakeFrontEnd{edges: edges}
	r := New(config.RecorderConfig{
		StrengthThreshold:        40,
		WarmupEdges:              3,
		MaxConsecutiveUnreliable: 3,
		MaxDurations:             100,
	}, nil)

	rs, err := r.Record(context.Background(), fe)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rs.EndReason != ForcedEnd {
		// fakeFrontEnd closes its channel once exhausted; no abort expected.
		t.Fatalf("EndReason = %v, want ForcedEnd (closed channel, not an invariant violation)", rs.EndReason)
	}
	if int(rs.UnreliableCount) != 10 {
		t.Fatalf("UnreliableCount = %d, want 10", rs.UnreliableCount)
	}
	assertNoConsecutiveUnreliableGapViolation(t, rs.V, rs.Count)
}
