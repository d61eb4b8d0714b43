package biosignal

import "strconv"

// State classifies a single cell of a sample series.
type State uint8

const (
	// StatePresent marks an observed numeric sample.
	StatePresent State = iota
	// StateMissing marks a sensor dropout or an undefined computation result.
	StateMissing
	// StateNotApplicable marks padding introduced when series of unequal
	// length are merged. It is neither data nor missingness: quality scoring
	// and correlation both skip it without counting it.
	StateNotApplicable
)

func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateMissing:
		return "missing"
	case StateNotApplicable:
		return "n/a"
	default:
		return "unknown"
	}
}

// Value is a tagged sample cell. The zero value is Present(0); construct
// through Present, Missing, or NotApplicable.
type Value struct {
	state State
	v     float64
}

// Present returns an observed sample.
func Present(v float64) Value { return Value{state: StatePresent, v: v} }

// Missing returns a missing-data marker.
func Missing() Value { return Value{state: StateMissing} }

// NotApplicable returns a merge-padding marker.
func NotApplicable() Value { return Value{state: StateNotApplicable} }

// FromPtr maps an optional numeric value (JSON null decodes to nil) onto the
// value model.
func FromPtr(p *float64) Value {
	if p == nil {
		return Missing()
	}
	return Present(*p)
}

// Float returns the numeric sample and true when the value is present.
func (v Value) Float() (float64, bool) {
	if v.state != StatePresent {
		return 0, false
	}
	return v.v, true
}

// Ptr returns the numeric sample as a pointer, or nil when not present.
func (v Value) Ptr() *float64 {
	if v.state != StatePresent {
		return nil
	}
	f := v.v
	return &f
}

func (v Value) State() State { return v.state }

func (v Value) IsPresent() bool { return v.state == StatePresent }

func (v Value) IsMissing() bool { return v.state == StateMissing }

func (v Value) IsNotApplicable() bool { return v.state == StateNotApplicable }

func (v Value) String() string {
	if v.state != StatePresent {
		return v.state.String()
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}
