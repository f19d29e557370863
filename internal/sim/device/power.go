package device

// Level is the configured level selected by the activation state: off_power
// when inverted equals powered, on_power otherwise.
func Level(st *State) int {
	if st.Inverted == st.Powered {
		return st.OffPower
	}
	return st.OnPower
}

// Power is the signal a device emits. Only switches emit; weak devices never
// drive strong signal and nooutput devices never drive anything.
func Power(d *Descriptor, st *State, strong bool) int {
	if d == nil || st == nil || d.Kind != KindSwitch {
		return 0
	}
	if st.NoOutput {
		return 0
	}
	if strong && st.Weak {
		return 0
	}
	return Level(st)
}
