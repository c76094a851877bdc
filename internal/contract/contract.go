// Package contract projects a patient profile onto the request payload of a
// given prediction-service contract version.
package contract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Skufu/NutriPredict/internal/assessment"
)

type Version int

const (
	V1 Version = iota + 1
	V2
	V3
)

// Latest is the newest contract the service understands.
const Latest = V3

var ErrUnknownVersion = errors.New("unknown contract version")

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// ParseVersion accepts "v1", "v2", "v3" (case-insensitive). An empty string
// selects Latest.
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Latest, nil
	case "v1", "1":
		return V1, nil
	case "v2", "2":
		return V2, nil
	case "v3", "3":
		return V3, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
}

func (v Version) MarshalText() ([]byte, error) {
	if !v.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, int(v))
	}
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Version) valid() bool {
	return v >= V1 && v <= V3
}

// Payload keys beyond the profile fields.
const KeyBMI = "bmi"

var (
	baseKeys = []string{
		string(assessment.FieldAge),
		string(assessment.FieldGender),
		string(assessment.FieldIronIntake),
		string(assessment.FieldVitDIntake),
	}
	v3Keys = append(append([]string{}, baseKeys...),
		KeyBMI,
		string(assessment.FieldMUAC),
		string(assessment.FieldProteins),
		string(assessment.FieldZinc),
	)
)

// Fields returns the payload key set declared by v, in wire order.
func Fields(v Version) ([]string, error) {
	switch v {
	case V1, V2:
		return append([]string{}, baseKeys...), nil
	case V3:
		return append([]string{}, v3Keys...), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, int(v))
	}
}

// InputFields returns the profile fields a user may edit under v. V2 collects
// the extended measurements for clinician display even though it does not
// send them.
func InputFields(v Version) ([]assessment.Field, error) {
	switch v {
	case V1:
		return append([]assessment.Field{}, assessment.RequiredFields...), nil
	case V2, V3:
		return append([]assessment.Field{}, assessment.AllFields...), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, int(v))
	}
}

// Payload is the JSON body sent to the prediction service.
type Payload map[string]any

// Keys returns the payload keys sorted.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Build copies exactly the keys declared by v out of profile and derived.
func Build(profile assessment.Profile, derived assessment.Derived, v Version) (Payload, error) {
	keys, err := Fields(v)
	if err != nil {
		return nil, err
	}

	payload := make(Payload, len(keys))
	for _, key := range keys {
		switch key {
		case string(assessment.FieldAge):
			payload[key] = profile.Age
		case string(assessment.FieldGender):
			payload[key] = int(profile.Gender)
		case KeyBMI:
			payload[key] = derived.BMI
		default:
			value, err := profile.Value(assessment.Field(key))
			if err != nil {
				return nil, fmt.Errorf("build %s payload: %w", v, err)
			}
			payload[key] = value
		}
	}
	return payload, nil
}
