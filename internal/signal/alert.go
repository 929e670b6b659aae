package signal

import (
	"fmt"

	"signal-lab/internal/indicator"
)

// AlertOp compares a series against a threshold or another series.
type AlertOp string

const (
	AlertAbove        AlertOp = "above"
	AlertBelow        AlertOp = "below"
	AlertCrossesAbove AlertOp = "crosses_above"
	AlertCrossesBelow AlertOp = "crosses_below"
)

// AlertRule is a configurable condition over resolved indicator series.
// When Right is nil the comparison is against Threshold.
type AlertRule struct {
	Name      string          `yaml:"name"`
	Left      indicator.Spec  `yaml:"left"`
	Op        AlertOp         `yaml:"op"`
	Right     *indicator.Spec `yaml:"right,omitempty"`
	Threshold float64         `yaml:"threshold"`
}

// Validate checks the operator and that referenced series have known kinds.
func (r AlertRule) Validate() error {
	switch r.Op {
	case AlertAbove, AlertBelow, AlertCrossesAbove, AlertCrossesBelow:
	default:
		return fmt.Errorf("alert %q: unknown op %q", r.Name, r.Op)
	}
	if r.Left.Kind == 0 {
		return fmt.Errorf("alert %q: left series has no kind", r.Name)
	}
	if r.Right != nil && r.Right.Kind == 0 {
		return fmt.Errorf("alert %q: right series has no kind", r.Name)
	}
	return nil
}

// Specs lists the series the rule reads.
func (r AlertRule) Specs() []indicator.Spec {
	if r.Right != nil {
		return []indicator.Spec{r.Left, *r.Right}
	}
	return []indicator.Spec{r.Left}
}

func (r AlertRule) rhs(t indicator.Table, prev bool) (float64, bool) {
	if r.Right == nil {
		return r.Threshold, true
	}
	if prev {
		return t.Prev(*r.Right)
	}
	return t.Last(*r.Right)
}

// Match reports whether the rule holds on the most recent bar of t.
func (r AlertRule) Match(t indicator.Table) bool {
	cur, ok := t.Last(r.Left)
	if !ok {
		return false
	}
	rhs, ok := r.rhs(t, false)
	if !ok {
		return false
	}
	switch r.Op {
	case AlertAbove:
		return cur > rhs
	case AlertBelow:
		return cur < rhs
	}

	prev, ok := t.Prev(r.Left)
	if !ok {
		return false
	}
	prevRHS, ok := r.rhs(t, true)
	if !ok {
		return false
	}
	switch r.Op {
	case AlertCrossesAbove:
		return prev <= prevRHS && cur > rhs
	case AlertCrossesBelow:
		return prev >= prevRHS && cur < rhs
	}
	return false
}
