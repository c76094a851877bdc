// Package screening is a rule-based stand-in for the external deficiency-risk
// model, used for local development and end-to-end tests. It accepts the
// payload of any contract version and answers with the service's response
// shape.
package screening

import (
	"fmt"
	"math"

	"github.com/Skufu/NutriPredict/internal/prediction"
)

// Request is the union of every contract version's payload. Keys a version
// does not send stay nil.
type Request struct {
	Age        *float64 `json:"age"`
	Gender     *int     `json:"gender"`
	IronIntake *float64 `json:"iron_intake"`
	VitDIntake *float64 `json:"vit_d_intake"`
	BMI        *float64 `json:"bmi"`
	MUAC       *float64 `json:"muac"`
	Proteins   *float64 `json:"proteins"`
	Zinc       *float64 `json:"zinc"`
}

// Finding is one threshold the patient crossed.
type Finding struct {
	Factor   string `json:"factor"`
	Severity string `json:"severity"`
	Note     string `json:"note"`
}

const highRiskScore = 50

var severityWeight = map[string]int{
	"HIGH":   40,
	"MEDIUM": 20,
	"LOW":    10,
}

// Validate mirrors the bounds the hosted model enforces on its inputs.
func (r Request) Validate() []string {
	var problems []string
	required := func(name string, v *float64) {
		if v == nil {
			problems = append(problems, fmt.Sprintf("%s is required", name))
		}
	}
	between := func(name string, v *float64, lo, hi float64) {
		if v != nil && (*v < lo || *v > hi) {
			problems = append(problems, fmt.Sprintf("%s must be between %g and %g", name, lo, hi))
		}
	}
	nonNegative := func(name string, v *float64) {
		if v != nil && *v < 0 {
			problems = append(problems, fmt.Sprintf("%s must be non-negative", name))
		}
	}

	required("age", r.Age)
	required("iron_intake", r.IronIntake)
	required("vit_d_intake", r.VitDIntake)
	if r.Gender == nil {
		problems = append(problems, "gender is required")
	} else if *r.Gender != 1 && *r.Gender != 2 {
		problems = append(problems, "gender must be 1 (Male) or 2 (Female)")
	}

	between("age", r.Age, 0, 120)
	nonNegative("iron_intake", r.IronIntake)
	nonNegative("vit_d_intake", r.VitDIntake)
	between("bmi", r.BMI, 10, 60)
	between("muac", r.MUAC, 5, 50)
	nonNegative("proteins", r.Proteins)
	nonNegative("zinc", r.Zinc)
	return problems
}

// Evaluate scores the request and builds the recommendation list. The
// request must have passed Validate.
func Evaluate(r Request) prediction.Result {
	findings := Findings(r)

	score := 5
	for _, f := range findings {
		score += severityWeight[f.Severity]
	}
	if score > 100 {
		score = 100
	}

	high := score >= highRiskScore
	probability := float64(score) / 100
	if !high {
		probability = 1 - probability
	}
	confidence := math.Round(probability*100*100) / 100

	recs := []string{}
	risk := prediction.RiskLow
	raw := 0.0
	if high {
		risk = prediction.RiskHigh
		raw = 1
		recs = append(recs, "High Risk Detected: analysis suggests sub-clinical nutrient deficiencies.")
	} else {
		recs = append(recs, "Low Risk: current metrics align with baseline nutritional stability.")
	}

	if r.BMI != nil {
		if *r.BMI < 18.5 {
			recs = append(recs, fmt.Sprintf("Analysis: BMI of %g indicates underweight status. Increase caloric density.", *r.BMI))
		} else if *r.BMI > 25 {
			recs = append(recs, fmt.Sprintf("Analysis: BMI of %g suggests overweight status. Review metabolic balance.", *r.BMI))
		}
	}
	for _, f := range findings {
		if f.Factor == "bmi" {
			continue
		}
		recs = append(recs, f.Note)
	}

	if confidence < 60 {
		recs = append(recs, "Note: confidence is borderline. Serum ferritin and 25(OH)D lab tests required.")
	} else {
		recs = append(recs, "Clinical Action: schedule a routine nutritional consultation to review these findings.")
	}

	return prediction.Result{
		DeficiencyRisk:  risk,
		Confidence:      confidence,
		RawPrediction:   raw,
		Recommendations: recs,
	}
}

// Findings lists crossed thresholds in presentation order: anthropometrics,
// micronutrients, then macronutrients.
func Findings(r Request) []Finding {
	findings := []Finding{}

	if r.BMI != nil && *r.BMI < 18.5 {
		findings = append(findings, Finding{
			Factor:   "bmi",
			Severity: "MEDIUM",
			Note:     "Underweight BMI.",
		})
	}
	if r.MUAC != nil && *r.MUAC < 23 {
		findings = append(findings, Finding{
			Factor:   "muac",
			Severity: "HIGH",
			Note:     "Alert: MUAC levels suggest potential muscle wasting or acute malnutrition.",
		})
	}
	if r.IronIntake != nil && *r.IronIntake < 8.0 {
		findings = append(findings, Finding{
			Factor:   "iron_intake",
			Severity: "MEDIUM",
			Note:     "Dietary: iron intake is below optimal thresholds. Prioritize heme-iron sources.",
		})
	}
	if r.VitDIntake != nil && *r.VitDIntake < 15.0 {
		findings = append(findings, Finding{
			Factor:   "vit_d_intake",
			Severity: "MEDIUM",
			Note:     "Dietary: vitamin D intake is critically low. Consider UV exposure and fortified foods.",
		})
	}
	if r.Zinc != nil && *r.Zinc < 11.0 {
		findings = append(findings, Finding{
			Factor:   "zinc",
			Severity: "LOW",
			Note:     "Dietary: zinc levels are suboptimal. Incorporate seeds, nuts, or legumes.",
		})
	}
	if r.Proteins != nil && *r.Proteins < 46 {
		findings = append(findings, Finding{
			Factor:   "proteins",
			Severity: "LOW",
			Note:     "Dietary: protein intake is insufficient for cellular repair and enzyme function.",
		})
	}
	return findings
}
