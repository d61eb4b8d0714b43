package biosignal

import "testing"

func TestValueStates(t *testing.T) {
	tests := []struct {
		name          string
		value         Value
		wantState     State
		wantFloat     float64
		wantPresent   bool
		wantRendering string
	}{
		{"present", Present(4.25), StatePresent, 4.25, true, "4.25"},
		{"present zero", Present(0), StatePresent, 0, true, "0"},
		{"missing", Missing(), StateMissing, 0, false, "missing"},
		{"not applicable", NotApplicable(), StateNotApplicable, 0, false, "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.State(); got != tt.wantState {
				t.Errorf("State() = %v, want %v", got, tt.wantState)
			}
			got, ok := tt.value.Float()
			if ok != tt.wantPresent {
				t.Errorf("Float() ok = %v, want %v", ok, tt.wantPresent)
			}
			if tt.wantPresent && got != tt.wantFloat {
				t.Errorf("Float() = %v, want %v", got, tt.wantFloat)
			}
			if got := tt.value.String(); got != tt.wantRendering {
				t.Errorf("String() = %q, want %q", got, tt.wantRendering)
			}
		})
	}
}

func TestValuePredicates(t *testing.T) {
	if !Present(1).IsPresent() {
		t.Error("Present(1).IsPresent() = false, want true")
	}
	if Present(1).IsMissing() {
		t.Error("Present(1).IsMissing() = true, want false")
	}
	if !Missing().IsMissing() {
		t.Error("Missing().IsMissing() = false, want true")
	}
	if !NotApplicable().IsNotApplicable() {
		t.Error("NotApplicable().IsNotApplicable() = false, want true")
	}
	if NotApplicable().IsMissing() {
		t.Error("NotApplicable().IsMissing() = true, want false")
	}
}

func TestFromPtr(t *testing.T) {
	v := 2.5
	if got := FromPtr(&v); !got.IsPresent() {
		t.Errorf("FromPtr(&%v) state = %v, want present", v, got.State())
	}
	if got := FromPtr(nil); !got.IsMissing() {
		t.Errorf("FromPtr(nil) state = %v, want missing", got.State())
	}
}

func TestPtrRoundTrip(t *testing.T) {
	p := Present(3.5).Ptr()
	if p == nil || *p != 3.5 {
		t.Errorf("Present(3.5).Ptr() = %v, want pointer to 3.5", p)
	}
	if got := Missing().Ptr(); got != nil {
		t.Errorf("Missing().Ptr() = %v, want nil", got)
	}
	if got := NotApplicable().Ptr(); got != nil {
		t.Errorf("NotApplicable().Ptr() = %v, want nil", got)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StatePresent, "present"},
		{StateMissing, "missing"},
		{StateNotApplicable, "n/a"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
