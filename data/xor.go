package data

// XOR returns the four-sample exclusive-or truth table.
func XOR() *Dataset {
	return &Dataset{
		Inputs: [][]float64{
			{0, 0},
			{0, 1},
			{1, 0},
			{1, 1},
		},
		Targets: [][]float64{
			{0},
			{1},
			{1},
			{0},
		},
	}
}
