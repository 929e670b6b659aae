package indicator

// OBV returns on-balance volume starting at 0. Length n.
func OBV(close, volume []float64) ([]float64, error) {
	if err := sameLength(close, volume); err != nil {
		return nil, err
	}
	out := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			out[i] = out[i-1] + volume[i]
		case close[i] < close[i-1]:
			out[i] = out[i-1] - volume[i]
		default:
			out[i] = out[i-1]
		}
	}
	return FillForward(out), nil
}
