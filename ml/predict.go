package ml

// Predict runs a forward pass without touching the Backward cache and
// returns the index of the strongest output neuron with its value. For a
// single-output network it returns 0 and the raw output.
func (nw *Network[A]) Predict(inputs []float64) (int, float64, error) {
	cache, err := nw.ForwardCache(inputs)
	if err != nil {
		return -1, 0, err
	}

	bestClass := -1
	maxProb := 0.0
	for i, prob := range cache.data[len(cache.data)-1].data {
		if bestClass < 0 || prob > maxProb {
			maxProb = prob
			bestClass = i
		}
	}
	return bestClass, maxProb, nil
}
