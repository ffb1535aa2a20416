package motion

import "testing"

func TestEyeBlinkCycle(t *testing.T) {
	b := NewEyeBlink()
	b.Rand = func() float64 { return 0.5 } // next blink 3999 ms out

	steps := []struct {
		now  int64
		want float32
	}{
		{0, 1},
		{3999, 1},
		{4000, 1}, // starts closing
		{4100, 0.5},
		{4200, 0}, // closed
		{4249, 0},
		{4250, 0}, // starts opening
		{4375, 0.5},
		{4500, 1}, // open, next blink at 8499
		{8499, 1},
		{8500, 1},
		{8600, 0.5},
	}
	for _, s := range steps {
		if got := b.Value(s.now); !approxEqual(got, s.want, 1e-6) {
			t.Errorf("t=%d: %v, want %v", s.now, got, s.want)
		}
	}
}

func TestEyeBlinkWrites(t *testing.T) {
	b := NewEyeBlink()
	b.CloseIfZero = false
	b.Rand = func() float64 { return 0 }
	tgt := newFakeTarget(ParamEyeLOpen, ParamEyeROpen)

	b.Update(tgt, 0) // interval, next blink immediately
	b.Update(tgt, 1) // closing starts
	b.Update(tgt, 101)
	if l, r := tgt.get(ParamEyeLOpen), tgt.get(ParamEyeROpen); !approxEqual(l, -0.5, 1e-6) || l != r {
		t.Errorf("eyes %v %v, want -0.5", l, r)
	}

	b.SetEyeIDs("PARAM_L", "PARAM_R")
	b.Update(newFakeTarget(), 150) // unknown parameters are skipped
}

func TestEyeBlinkAsMotion(t *testing.T) {
	b := NewEyeBlink()
	b.Rand = func() float64 { return 0.5 }
	clock := &ManualClock{}
	q := NewQueueManager(clock)
	q.StartMotion(b, true)
	tgt := newFakeTarget(ParamEyeLOpen, ParamEyeROpen)
	for _, now := range []int64{0, 4000, 4100} {
		clock.Set(now)
		q.Update(tgt)
	}
	if got := tgt.get(ParamEyeLOpen); !approxEqual(got, 0.5, 1e-6) {
		t.Errorf("eye %v, want 0.5", got)
	}
	if q.IsFinished() {
		t.Error("eye blink finished")
	}
}
