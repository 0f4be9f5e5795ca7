package audioio

// PeakNormalize scales samples so the loudest one reaches full scale. A chunk
// whose peak amplitude is zero (pure silence) is returned unchanged.
func PeakNormalize(samples []int16) []int16 {
	var peak int32
	for _, s := range samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return samples
	}

	out := make([]int16, len(samples))
	gain := 32767.0 / float64(peak)
	for i, s := range samples {
		scaled := float64(s) * gain
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		out[i] = int16(scaled)
	}
	return out
}

// PadSilence surrounds samples with pad milliseconds of silence on each end.
// The recognizer handles chunk-boundary words better with a little context;
// callers must subtract the same padding from returned timestamps.
func PadSilence(samples []int16, sampleRate int, padMillis int) []int16 {
	pad := sampleRate * padMillis / 1000
	out := make([]int16, pad+len(samples)+pad)
	copy(out[pad:], samples)
	return out
}
