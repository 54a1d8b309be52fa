package models

import validation "github.com/go-ozzo/ozzo-validation/v4"

// ReorgSuggestion proposes moving one output file.
type ReorgSuggestion struct {
	CurrentPath   string `json:"current_path"`
	SuggestedPath string `json:"suggested_path"`
	Reason        string `json:"reason"`
}

// Validate requires both paths.
func (s ReorgSuggestion) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.CurrentPath, validation.Required),
		validation.Field(&s.SuggestedPath, validation.Required),
	)
}

// CategorySuggestion proposes a new category or subcategory split.
type CategorySuggestion struct {
	Category      string   `json:"category"`
	Subcategory   string   `json:"subcategory,omitempty"`
	AffectedFiles []string `json:"affected_files"`
	Reason        string   `json:"reason"`
}

// ReorgResponse is the JSON document returned by the reorganization call.
type ReorgResponse struct {
	FileMoves     []ReorgSuggestion    `json:"file_moves"`
	NewCategories []CategorySuggestion `json:"new_categories"`
}

// Validate checks every proposed move.
func (r ReorgResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileMoves),
	)
}

// CrossReference proposes a "see also" link from one output file to another.
type CrossReference struct {
	FromFile string `json:"from_file"`
	ToFile   string `json:"to_file"`
	Context  string `json:"context"`
}

// Validate requires both endpoints.
func (c CrossReference) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FromFile, validation.Required),
		validation.Field(&c.ToFile, validation.Required),
	)
}

// CrossRefResponse is the JSON document returned by the cross-reference call.
type CrossRefResponse struct {
	References []CrossReference `json:"references"`
}

// Validate requires the references array and valid entries.
func (r CrossRefResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.References, validation.NotNil),
	)
}
