package recipe

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	return data
}

func TestValidate_MinimalRecipe(t *testing.T) {
	data := decode(t, `{"title": "Tomato Soup"}`)
	if errs := Validate(data); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidate_MissingTitle(t *testing.T) {
	data := decode(t, `{"servings": 2}`)
	errs := Validate(data)
	if len(errs) != 1 || errs[0] != "Recipe must have a title" {
		t.Fatalf("expected title error, got %v", errs)
	}
}

func TestValidate_EmptyTitle(t *testing.T) {
	data := decode(t, `{"title": ""}`)
	errs := Validate(data)
	if len(errs) != 1 || errs[0] != "Recipe must have a title" {
		t.Fatalf("expected title error, got %v", errs)
	}
}

func TestValidate_Servings(t *testing.T) {
	cases := []struct {
		raw   string
		valid bool
	}{
		{`{"title": "x", "servings": 4}`, true},
		{`{"title": "x", "servings": 0}`, false},
		{`{"title": "x", "servings": -1}`, false},
		{`{"title": "x", "servings": 2.5}`, false},
		{`{"title": "x", "servings": "4"}`, false},
	}
	for _, tc := range cases {
		errs := Validate(decode(t, tc.raw))
		if tc.valid && len(errs) != 0 {
			t.Fatalf("%s: expected valid, got %v", tc.raw, errs)
		}
		if !tc.valid {
			if len(errs) != 1 || errs[0] != "Servings must be a positive integer" {
				t.Fatalf("%s: expected servings error, got %v", tc.raw, errs)
			}
		}
	}
}

func TestValidate_TimeFields(t *testing.T) {
	// Null and absent are both fine; negatives and fractions are not.
	if errs := Validate(decode(t, `{"title": "x", "prep_time_minutes": null, "wait_time_minutes": 15}`)); len(errs) != 0 {
		t.Fatalf("expected valid, got %v", errs)
	}

	errs := Validate(decode(t, `{"title": "x", "prep_time_minutes": -5}`))
	if len(errs) != 1 || errs[0] != "prep_time_minutes must be a non-negative integer or null" {
		t.Fatalf("expected prep time error, got %v", errs)
	}

	errs = Validate(decode(t, `{"title": "x", "wait_time_minutes": "soon"}`))
	if len(errs) != 1 || errs[0] != "wait_time_minutes must be a non-negative integer or null" {
		t.Fatalf("expected wait time error, got %v", errs)
	}
}

func TestValidate_Ingredients(t *testing.T) {
	errs := Validate(decode(t, `{"title": "x", "ingredients": "flour"}`))
	if len(errs) != 1 || errs[0] != "Ingredients must be a list" {
		t.Fatalf("expected list error, got %v", errs)
	}

	errs = Validate(decode(t, `{"title": "x", "ingredients": ["flour", {"amount": "2"}]}`))
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0] != "Ingredient 1 must be an object" {
		t.Fatalf("unexpected first error: %q", errs[0])
	}
	if errs[1] != "Ingredient 2 must have a name" {
		t.Fatalf("unexpected second error: %q", errs[1])
	}
}

func TestValidate_Steps(t *testing.T) {
	errs := Validate(decode(t, `{"title": "x", "steps": {"content": "mix"}}`))
	if len(errs) != 1 || errs[0] != "Steps must be a list" {
		t.Fatalf("expected list error, got %v", errs)
	}

	errs = Validate(decode(t, `{"title": "x", "steps": [{"content": "mix"}, {"order": 2}]}`))
	if len(errs) != 1 || errs[0] != "Step 2 must have content" {
		t.Fatalf("expected step content error, got %v", errs)
	}
}

func TestValidate_Images(t *testing.T) {
	if errs := Validate(decode(t, `{"title": "x", "images": ["a.jpg"]}`)); len(errs) != 0 {
		t.Fatalf("expected valid, got %v", errs)
	}
	errs := Validate(decode(t, `{"title": "x", "images": "a.jpg"}`))
	if len(errs) != 1 || errs[0] != "Images must be a list" {
		t.Fatalf("expected images error, got %v", errs)
	}
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	data := decode(t, `{"servings": 0, "prep_time_minutes": -1, "images": 7}`)
	errs := Validate(data)
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}
}
