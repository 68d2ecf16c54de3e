package schema

import (
	"fmt"
	"math"
)

type FeatureKind string

const (
	KindFlag       FeatureKind = "flag"
	KindContinuous FeatureKind = "continuous"
)

// FeatureSpec declares one input slot of the heart failure model. Min/Max
// bound the documented clinical domain; for continuous features the bounds
// are advisory (see BuildVector), for flags they are hard.
type FeatureSpec struct {
	Name string
	Kind FeatureKind
	Min  float64
	Max  float64
}

// Features lists the 11 inputs of the heart failure clinical record, in
// canonical (dataset) order. The serving order comes from the decision
// config, not from here.
func Features() []FeatureSpec {
	return []FeatureSpec{
		{Name: "age", Kind: KindContinuous, Min: 0, Max: 120},
		{Name: "anaemia", Kind: KindFlag, Min: 0, Max: 1},
		{Name: "creatinine_phosphokinase", Kind: KindContinuous, Min: 0, Max: math.Inf(1)},
		{Name: "diabetes", Kind: KindFlag, Min: 0, Max: 1},
		{Name: "ejection_fraction", Kind: KindContinuous, Min: 0, Max: 100},
		{Name: "high_blood_pressure", Kind: KindFlag, Min: 0, Max: 1},
		{Name: "platelets", Kind: KindContinuous, Min: 0, Max: math.Inf(1)},
		{Name: "serum_creatinine", Kind: KindContinuous, Min: 0, Max: math.Inf(1)},
		{Name: "serum_sodium", Kind: KindContinuous, Min: 100, Max: 200},
		{Name: "sex", Kind: KindFlag, Min: 0, Max: 1},
		{Name: "smoking", Kind: KindFlag, Min: 0, Max: 1},
	}
}

var specsByName = func() map[string]FeatureSpec {
	specs := make(map[string]FeatureSpec)
	for _, spec := range Features() {
		specs[spec.Name] = spec
	}
	return specs
}()

func SpecFor(name string) (FeatureSpec, bool) {
	spec, ok := specsByName[name]
	return spec, ok
}

// ValidateOrder checks that a declared feature order covers the schema
// exactly: every name known, no duplicates, nothing missing. Called at
// startup against the decision config; failure is fatal.
func ValidateOrder(order []string) error {
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if _, ok := specsByName[name]; !ok {
			return fmt.Errorf("feature order names unknown feature %q", name)
		}
		if seen[name] {
			return fmt.Errorf("feature order repeats %q", name)
		}
		seen[name] = true
	}
	for name := range specsByName {
		if !seen[name] {
			return fmt.Errorf("feature order omits %q", name)
		}
	}
	return nil
}
