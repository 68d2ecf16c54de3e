package schema

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func canonicalOrder() []string {
	specs := Features()
	order := make([]string, len(specs))
	for i, spec := range specs {
		order[i] = spec.Name
	}
	return order
}

func validInstance() map[string]interface{} {
	return map[string]interface{}{
		"anaemia":                  float64(0),
		"diabetes":                 float64(1),
		"high_blood_pressure":      float64(1),
		"sex":                      float64(1),
		"smoking":                  float64(0),
		"age":                      float64(65),
		"creatinine_phosphokinase": float64(582),
		"ejection_fraction":        float64(20),
		"platelets":                float64(265000),
		"serum_creatinine":         float64(1.9),
		"serum_sodium":             float64(130),
	}
}

func TestBuildVectorMissingEachFeature(t *testing.T) {
	order := canonicalOrder()
	for _, name := range order {
		instance := validInstance()
		delete(instance, name)

		_, _, err := BuildVector(instance, order)
		var missing *MissingFeatureError
		if !errors.As(err, &missing) {
			t.Fatalf("omitting %s: expected MissingFeatureError, got %v", name, err)
		}
		if missing.Feature != name {
			t.Fatalf("expected error to name %s, got %s", name, missing.Feature)
		}
	}
}

func TestBuildVectorFollowsDeclaredOrder(t *testing.T) {
	order := []string{"serum_sodium", "age", "sex"}
	instance := validInstance()

	vector, _, err := BuildVector(instance, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{130, 65, 1}
	for i, v := range want {
		if vector[i] != v {
			t.Fatalf("slot %d: expected %v, got %v", i, v, vector[i])
		}
	}
}

func TestBuildVectorFlagOutOfDomain(t *testing.T) {
	instance := validInstance()
	instance["sex"] = float64(2)

	_, _, err := BuildVector(instance, canonicalOrder())
	var invalid *InvalidTypeError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTypeError, got %v", err)
	}
	if invalid.Feature != "sex" {
		t.Fatalf("expected error on sex, got %s", invalid.Feature)
	}
}

func TestBuildVectorNonNumeric(t *testing.T) {
	instance := validInstance()
	instance["age"] = "sixty-five"

	_, _, err := BuildVector(instance, canonicalOrder())
	var invalid *InvalidTypeError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTypeError, got %v", err)
	}
}

func TestBuildVectorJSONNumber(t *testing.T) {
	instance := validInstance()
	instance["age"] = json.Number("65")

	vector, _, err := BuildVector(instance, canonicalOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 11 {
		t.Fatalf("expected 11 slots, got %d", len(vector))
	}
}

func TestBuildVectorNonFinite(t *testing.T) {
	instance := validInstance()
	instance["platelets"] = math.NaN()

	_, _, err := BuildVector(instance, canonicalOrder())
	var nonFinite *NonFiniteError
	if !errors.As(err, &nonFinite) {
		t.Fatalf("expected NonFiniteError, got %v", err)
	}
	if nonFinite.Feature != "platelets" {
		t.Fatalf("expected error on platelets, got %s", nonFinite.Feature)
	}
}

func TestBuildVectorContinuousExtremesPass(t *testing.T) {
	instance := validInstance()
	instance["age"] = float64(120)
	instance["ejection_fraction"] = float64(0)

	_, warnings, err := BuildVector(instance, canonicalOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("documented extremes should not warn, got %v", warnings)
	}
}

func TestBuildVectorOutOfRangeWarns(t *testing.T) {
	instance := validInstance()
	instance["serum_sodium"] = float64(90)

	vector, warnings, err := BuildVector(instance, canonicalOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 11 {
		t.Fatalf("expected vector despite warning")
	}
	if len(warnings) != 1 || warnings[0].Feature != "serum_sodium" {
		t.Fatalf("expected one warning on serum_sodium, got %v", warnings)
	}
}

func TestBuildVectorIgnoresUnknownKeys(t *testing.T) {
	instance := validInstance()
	instance["hospital_id"] = "ward-7"
	instance["admitted"] = true

	if _, _, err := BuildVector(instance, canonicalOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateOrder(t *testing.T) {
	if err := ValidateOrder(canonicalOrder()); err != nil {
		t.Fatalf("canonical order should validate: %v", err)
	}

	if err := ValidateOrder(canonicalOrder()[:10]); err == nil {
		t.Fatal("expected error for incomplete order")
	}

	unknown := append(canonicalOrder()[:10], "blood_type")
	if err := ValidateOrder(unknown); err == nil {
		t.Fatal("expected error for unknown feature")
	}

	dup := append(canonicalOrder()[:10], "age")
	if err := ValidateOrder(dup); err == nil {
		t.Fatal("expected error for duplicated feature")
	}
}
