package schema

import (
	"encoding/json"
	"fmt"
	"math"
)

// MissingFeatureError reports a required feature absent from an instance.
type MissingFeatureError struct {
	Feature string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("missing feature %q", e.Feature)
}

// InvalidTypeError reports a value that is not numeric, or a flag value not
// reducible to {0,1}.
type InvalidTypeError struct {
	Feature string
	Got     string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("feature %q has invalid value %s", e.Feature, e.Got)
}

// NonFiniteError reports a NaN or infinite numeric value. These are always a
// hard reject, unlike out-of-range finite values.
type NonFiniteError struct {
	Feature string
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("feature %q is not finite", e.Feature)
}

// Warning marks a finite continuous value outside its documented clinical
// range. Clinical extremes can be legitimate, so the value still passes.
type Warning struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	Reason  string  `json:"reason"`
}

// BuildVector maps one loosely typed instance onto the ordered numeric vector
// the pipeline expects. It never panics past this boundary: the result is
// either a vector plus soft warnings or one of the typed errors above.
// Unrecognized keys are ignored.
func BuildVector(instance map[string]interface{}, order []string) ([]float64, []Warning, error) {
	vector := make([]float64, len(order))
	var warnings []Warning
	for i, name := range order {
		raw, ok := instance[name]
		if !ok {
			return nil, nil, &MissingFeatureError{Feature: name}
		}
		value, ok := numericValue(raw)
		if !ok {
			return nil, nil, &InvalidTypeError{Feature: name, Got: describe(raw)}
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, nil, &NonFiniteError{Feature: name}
		}
		spec, known := SpecFor(name)
		if !known {
			// Order is validated against the schema at startup.
			return nil, nil, fmt.Errorf("feature %q not in schema", name)
		}
		if spec.Kind == KindFlag {
			if value != 0 && value != 1 {
				return nil, nil, &InvalidTypeError{Feature: name, Got: describe(raw)}
			}
		} else if value < spec.Min || value > spec.Max {
			warnings = append(warnings, Warning{
				Feature: name,
				Value:   value,
				Reason:  fmt.Sprintf("outside documented range [%g, %g]", spec.Min, spec.Max),
			})
		}
		vector[i] = value
	}
	return vector, warnings, nil
}

func numericValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func describe(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
