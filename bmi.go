package main

// calculateBMI returns weight / height² with height converted from cm to m.
// Callers validate heightCM > 0.
func calculateBMI(weightKG, heightCM float64) float64 {
	heightM := heightCM / 100
	return weightKG / (heightM * heightM)
}
