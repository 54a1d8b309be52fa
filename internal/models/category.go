package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// Category is either one of the canonical categories below or a custom,
// model-supplied category name. Names are compared lowercase.
type Category struct {
	name   string
	custom bool
}

// Canonical categories offered to the model.
var (
	Mathematics     = Category{name: "mathematics"}
	Statistics      = Category{name: "statistics"}
	Physics         = Category{name: "physics"}
	Chemistry       = Category{name: "chemistry"}
	Biology         = Category{name: "biology"}
	ComputerScience = Category{name: "computer_science"}

	MachineLearning = Category{name: "machine_learning"}
	Engineering     = Category{name: "engineering"}
	Finance         = Category{name: "finance"}

	Philosophy = Category{name: "philosophy"}
	History    = Category{name: "history"}
	Literature = Category{name: "literature"}
	Languages  = Category{name: "languages"}

	Journal = Category{name: "journal"}
	Ideas   = Category{name: "ideas"}
	Todo    = Category{name: "todo"}

	Books    = Category{name: "books"}
	Videos   = Category{name: "videos"}
	Articles = Category{name: "articles"}
	Podcasts = Category{name: "podcasts"}

	Reference     = Category{name: "reference"}
	Links         = Category{name: "links"}
	Uncategorized = Category{name: "uncategorized"}
)

// KnownCategories lists the canonical categories in prompt order.
var KnownCategories = []Category{
	Mathematics, Statistics, Physics, Chemistry, Biology, ComputerScience,
	MachineLearning, Engineering, Finance,
	Philosophy, History, Literature, Languages,
	Journal, Ideas, Todo,
	Books, Videos, Articles, Podcasts,
	Reference, Links, Uncategorized,
}

var knownByName = func() map[string]Category {
	m := make(map[string]Category, len(KnownCategories))
	for _, c := range KnownCategories {
		m[c.name] = c
	}
	return m
}()

// ParseCategory maps s onto a canonical category when it matches one
// (case-insensitively) and onto a custom category otherwise.
func ParseCategory(s string) Category {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Category{}
	}
	if c, ok := knownByName[name]; ok {
		return c
	}
	return Category{name: name, custom: true}
}

// String returns the lowercase category name.
func (c Category) String() string { return c.name }

// IsCustom reports whether the category came from outside the canonical set.
func (c Category) IsCustom() bool { return c.custom }

// IsZero reports whether the category is unset.
func (c Category) IsZero() bool { return c.name == "" }

// Validate rejects an unset category.
func (c Category) Validate() error {
	if c.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
}

// MarshalText encodes the category as its name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.name), nil
}

// UnmarshalText decodes a category name via ParseCategory.
func (c *Category) UnmarshalText(text []byte) error {
	*c = ParseCategory(string(text))
	return nil
}

// MarshalJSON encodes the category as a JSON string.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.name)
}

// UnmarshalJSON decodes a JSON string into a category.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}
