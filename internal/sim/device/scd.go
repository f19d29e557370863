package device

// Legacy packed config words. scd holds the core output config, svd the
// sensor band.
//
//	scd: on_power[0:4] off_power[4:8] color_tint[8:12] inverted[12] weak[13] nooutput[14] active_time[16:24]
//	svd: threshold_on[0:4] threshold_off[4:8] debounce[8:12] filter[12:16] range[16:24] threshold[24:32]

const (
	scdInverted = 1 << 12
	scdWeak     = 1 << 13
	scdNoOutput = 1 << 14
)

func packSCD(st *State) uint32 {
	w := uint32(st.OnPower&0xf) |
		uint32(st.OffPower&0xf)<<4 |
		uint32(st.ColorTint&0xf)<<8 |
		uint32(st.ActiveTime&0xff)<<16
	if st.Inverted {
		w |= scdInverted
	}
	if st.Weak {
		w |= scdWeak
	}
	if st.NoOutput {
		w |= scdNoOutput
	}
	return w
}

func packSVD(s *SensorState) uint32 {
	return uint32(s.ThresholdOn&0xf) |
		uint32(s.ThresholdOff&0xf)<<4 |
		uint32(s.Debounce&0xf)<<8 |
		uint32(s.FilterIndex&0xf)<<12 |
		uint32(s.Range&0xff)<<16 |
		uint32(s.Threshold&0xff)<<24
}
