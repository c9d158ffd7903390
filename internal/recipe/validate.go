package recipe

import (
	"fmt"
	"math"
)

// Validate checks decoded extraction output against the recipe rules
// and returns one message per violation. All rules are applied; an
// empty slice means the data is valid.
func Validate(data map[string]any) []string {
	var errs []string

	if !nonEmptyString(data["title"]) {
		errs = append(errs, "Recipe must have a title")
	}

	// Absent servings defaults to 1 and is valid.
	if v, ok := data["servings"]; ok {
		if n, isInt := asInt(v); !isInt || n < 1 {
			errs = append(errs, "Servings must be a positive integer")
		}
	}

	errs = append(errs, validateTimeField(data, "prep_time_minutes")...)
	errs = append(errs, validateTimeField(data, "wait_time_minutes")...)

	if v, ok := data["ingredients"]; ok {
		items, isList := v.([]any)
		if !isList {
			errs = append(errs, "Ingredients must be a list")
		} else {
			for i, item := range items {
				ing, isObj := item.(map[string]any)
				if !isObj {
					errs = append(errs, fmt.Sprintf("Ingredient %d must be an object", i+1))
					continue
				}
				if !nonEmptyString(ing["name"]) {
					errs = append(errs, fmt.Sprintf("Ingredient %d must have a name", i+1))
				}
			}
		}
	}

	if v, ok := data["steps"]; ok {
		items, isList := v.([]any)
		if !isList {
			errs = append(errs, "Steps must be a list")
		} else {
			for i, item := range items {
				step, isObj := item.(map[string]any)
				if !isObj {
					errs = append(errs, fmt.Sprintf("Step %d must be an object", i+1))
					continue
				}
				if !nonEmptyString(step["content"]) {
					errs = append(errs, fmt.Sprintf("Step %d must have content", i+1))
				}
			}
		}
	}

	if v, ok := data["images"]; ok {
		if _, isList := v.([]any); !isList {
			errs = append(errs, "Images must be a list")
		}
	}

	return errs
}

func validateTimeField(data map[string]any, field string) []string {
	v, ok := data[field]
	if !ok || v == nil {
		return nil
	}
	if n, isInt := asInt(v); !isInt || n < 0 {
		return []string{field + " must be a non-negative integer or null"}
	}
	return nil
}

func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}

// asInt reports whether a decoded JSON value is an integral number.
// encoding/json decodes all numbers as float64.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
