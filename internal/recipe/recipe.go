package recipe

// Ingredient is a single entry in a recipe's ingredient list.
type Ingredient struct {
	Amount string `json:"amount,omitempty"`
	Unit   string `json:"unit,omitempty"`
	Name   string `json:"name"`
	Note   string `json:"note,omitempty"`
	Order  int    `json:"order,omitempty"`
}

// Step is a single instruction in a recipe.
type Step struct {
	Content string `json:"content"`
	Order   int    `json:"order,omitempty"`
}

// Recipe is the structured output of an extraction job. Only Title is
// required; Servings defaults to 1 when absent.
type Recipe struct {
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Servings         int          `json:"servings,omitempty"`
	Keywords         string       `json:"keywords,omitempty"`
	PrepTimeMinutes  *int         `json:"prep_time_minutes,omitempty"`
	WaitTimeMinutes  *int         `json:"wait_time_minutes,omitempty"`
	URL              string       `json:"url,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	SpecialEquipment string       `json:"special_equipment,omitempty"`
	Ingredients      []Ingredient `json:"ingredients,omitempty"`
	Steps            []Step       `json:"steps,omitempty"`
	Images           []string     `json:"images,omitempty"`
}
