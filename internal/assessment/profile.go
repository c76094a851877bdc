package assessment

import (
	"errors"
	"fmt"
	"math"
)

type Gender int

const (
	Male   Gender = 1
	Female Gender = 2
)

func (g Gender) String() string {
	switch g {
	case Male:
		return "Male"
	case Female:
		return "Female"
	default:
		return fmt.Sprintf("Gender(%d)", int(g))
	}
}

// Field names a profile measurement. The value doubles as the wire key used
// by the prediction service and the HTTP API.
type Field string

const (
	FieldAge        Field = "age"
	FieldGender     Field = "gender"
	FieldIronIntake Field = "iron_intake"
	FieldVitDIntake Field = "vit_d_intake"
	FieldWeight     Field = "weight"
	FieldHeight     Field = "height"
	FieldMUAC       Field = "muac"
	FieldProteins   Field = "proteins"
	FieldCarbs      Field = "carbs"
	FieldZinc       Field = "zinc"
	FieldVitA       Field = "vit_a"
	FieldVitE       Field = "vit_e"
	FieldVitC       Field = "vit_c"
	FieldVitK       Field = "vit_k"
)

// RequiredFields are consumed by every contract version.
var RequiredFields = []Field{FieldAge, FieldGender, FieldIronIntake, FieldVitDIntake}

// AllFields lists every field in display order.
var AllFields = []Field{
	FieldAge, FieldGender, FieldIronIntake, FieldVitDIntake,
	FieldWeight, FieldHeight, FieldMUAC,
	FieldProteins, FieldCarbs, FieldZinc,
	FieldVitA, FieldVitE, FieldVitC, FieldVitK,
}

var (
	ErrUnknownField = errors.New("unknown profile field")
	ErrInvalidValue = errors.New("invalid profile value")
)

// ParseField maps a wire name onto a Field.
func ParseField(name string) (Field, error) {
	for _, f := range AllFields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Profile is the set of measurements entered for one patient. Numeric ranges
// are not validated; the prediction service is the only validator.
type Profile struct {
	Age        int     `json:"age"`
	Gender     Gender  `json:"gender"`
	IronIntake float64 `json:"iron_intake"`
	VitDIntake float64 `json:"vit_d_intake"`

	Weight   float64 `json:"weight"`
	Height   float64 `json:"height"`
	MUAC     float64 `json:"muac"`
	Proteins float64 `json:"proteins"`
	Carbs    float64 `json:"carbs"`
	Zinc     float64 `json:"zinc"`
	VitA     float64 `json:"vit_a"`
	VitE     float64 `json:"vit_e"`
	VitC     float64 `json:"vit_c"`
	VitK     float64 `json:"vit_k"`
}

// DefaultProfile returns the values a new session starts with.
func DefaultProfile() Profile {
	return Profile{
		Age:        25,
		Gender:     Male,
		IronIntake: 8.0,
		VitDIntake: 10.0,
		Weight:     70,
		Height:     170,
		MUAC:       25,
		Proteins:   50,
		Carbs:      250,
		Zinc:       11,
		VitA:       900,
		VitE:       15,
		VitC:       90,
		VitK:       120,
	}
}

// Value returns the numeric value of f.
func (p Profile) Value(f Field) (float64, error) {
	switch f {
	case FieldAge:
		return float64(p.Age), nil
	case FieldGender:
		return float64(p.Gender), nil
	case FieldIronIntake:
		return p.IronIntake, nil
	case FieldVitDIntake:
		return p.VitDIntake, nil
	case FieldWeight:
		return p.Weight, nil
	case FieldHeight:
		return p.Height, nil
	case FieldMUAC:
		return p.MUAC, nil
	case FieldProteins:
		return p.Proteins, nil
	case FieldCarbs:
		return p.Carbs, nil
	case FieldZinc:
		return p.Zinc, nil
	case FieldVitA:
		return p.VitA, nil
	case FieldVitE:
		return p.VitE, nil
	case FieldVitC:
		return p.VitC, nil
	case FieldVitK:
		return p.VitK, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
}

func (p *Profile) set(f Field, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidValue, f)
	}

	switch f {
	case FieldAge:
		if v != math.Trunc(v) {
			return fmt.Errorf("%w: age must be a whole number of years", ErrInvalidValue)
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("%w: age %g is out of integer range", ErrInvalidValue, v)
		}
		p.Age = int(v)
	case FieldGender:
		g := Gender(int(v))
		if float64(g) != v || (g != Male && g != Female) {
			return fmt.Errorf("%w: gender must be 1 (Male) or 2 (Female)", ErrInvalidValue)
		}
		p.Gender = g
	case FieldIronIntake:
		p.IronIntake = v
	case FieldVitDIntake:
		p.VitDIntake = v
	case FieldWeight:
		p.Weight = v
	case FieldHeight:
		p.Height = v
	case FieldMUAC:
		p.MUAC = v
	case FieldProteins:
		p.Proteins = v
	case FieldCarbs:
		p.Carbs = v
	case FieldZinc:
		p.Zinc = v
	case FieldVitA:
		p.VitA = v
	case FieldVitE:
		p.VitE = v
	case FieldVitC:
		p.VitC = v
	case FieldVitK:
		p.VitK = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return nil
}
