package assessment

import "math"

// Derived holds metrics computed from the profile rather than entered.
type Derived struct {
	BMI float64 `json:"bmi"`
}

// RecomputeBMI returns weight / (height/100)^2 rounded to one decimal.
// A non-positive height, or a result that is not a finite number, yields
// previous unchanged.
func RecomputeBMI(weight, height, previous float64) float64 {
	if height <= 0 {
		return previous
	}
	meters := height / 100
	bmi := math.Round(weight/(meters*meters)*10) / 10
	if math.IsInf(bmi, 0) || math.IsNaN(bmi) {
		return previous
	}
	return bmi
}
