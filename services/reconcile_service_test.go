package services

import (
	"testing"

	"github.com/futureguard/api/model"
)

func strptr(s string) *string { return &s }

func TestComputeTransitionNewStudent(t *testing.T) {
	tr := ComputeTransition(nil, model.RiskHigh)

	if !tr.Created || tr.Changed {
		t.Errorf("new student: Created=%t Changed=%t, want true/false", tr.Created, tr.Changed)
	}
	if tr.Success {
		t.Error("a first sighting is never a success event")
	}
	want := CounterDelta{RiskHigh: 1}
	if tr.Delta != want {
		t.Errorf("delta = %+v, want %+v", tr.Delta, want)
	}
}

func TestComputeTransitionUnchanged(t *testing.T) {
	tr := ComputeTransition(strptr(model.RiskMedium), model.RiskMedium)

	if tr.Created || tr.Changed || tr.Success {
		t.Errorf("unchanged risk must be a no-op, got %+v", tr)
	}
	if !tr.Delta.IsZero() {
		t.Errorf("unchanged risk must carry a zero delta, got %+v", tr.Delta)
	}
}

func TestComputeTransitionRiskChange(t *testing.T) {
	tr := ComputeTransition(strptr(model.RiskLow), model.RiskHigh)

	if !tr.Changed || tr.Created {
		t.Errorf("Changed=%t Created=%t, want true/false", tr.Changed, tr.Created)
	}
	if tr.Success {
		t.Error("low to high must not be a success")
	}
	want := CounterDelta{RiskLow: -1, RiskHigh: 1}
	if tr.Delta != want {
		t.Errorf("delta = %+v, want %+v", tr.Delta, want)
	}
}

func TestComputeTransitionSuccessEdges(t *testing.T) {
	cases := []struct {
		old     string
		new     string
		success bool
	}{
		{model.RiskHigh, model.RiskLow, true},
		{model.RiskMedium, model.RiskLow, true},
		{model.RiskHigh, model.RiskMedium, false},
		{model.RiskLow, model.RiskMedium, false},
		{model.RiskLow, model.RiskHigh, false},
	}

	for _, c := range cases {
		tr := ComputeTransition(strptr(c.old), c.new)
		if tr.Success != c.success {
			t.Errorf("%s -> %s: Success = %t, want %t", c.old, c.new, tr.Success, c.success)
		}
		if c.success && tr.Delta.Success != 1 {
			t.Errorf("%s -> %s: success delta = %d, want 1", c.old, c.new, tr.Delta.Success)
		}
		if !c.success && tr.Delta.Success != 0 {
			t.Errorf("%s -> %s: success delta = %d, want 0", c.old, c.new, tr.Delta.Success)
		}
	}
}

// A student can earn a second success after relapsing: high -> low -> high
// -> low counts two recoveries, while repeated low results in between count
// none.
func TestComputeTransitionRelapseRecovery(t *testing.T) {
	successes := int64(0)
	risk := strptr(model.RiskHigh)

	for _, next := range []string{model.RiskLow, model.RiskLow, model.RiskHigh, model.RiskLow} {
		tr := ComputeTransition(risk, next)
		successes += tr.Delta.Success
		risk = strptr(next)
	}

	if successes != 2 {
		t.Errorf("relapse and recover should count 2 successes, got %d", successes)
	}
}

// Counter conservation: any sequence of transitions keeps the sum of risk
// deltas equal to the number of creations.
func TestComputeTransitionDeltaConservation(t *testing.T) {
	tr := ComputeTransition(strptr(model.RiskMedium), model.RiskHigh)
	sum := tr.Delta.RiskHigh + tr.Delta.RiskMedium + tr.Delta.RiskLow
	if sum != 0 {
		t.Errorf("a risk change must conserve the student count, delta sum = %d", sum)
	}

	created := ComputeTransition(nil, model.RiskLow)
	sum = created.Delta.RiskHigh + created.Delta.RiskMedium + created.Delta.RiskLow
	if sum != 1 {
		t.Errorf("a creation must add exactly one student, delta sum = %d", sum)
	}
}
