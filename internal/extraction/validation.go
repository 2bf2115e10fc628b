package extraction

import (
	"strings"

	"github.com/bilix/bilix/internal/domain"
)

// CategoryValidator maps category names chosen by the model onto the user's
// own categories.
type CategoryValidator struct {
	byName map[string]string // normalized name -> category ID
	names  []string
}

// NewCategoryValidator indexes the user's categories.
func NewCategoryValidator(categories []domain.Category) *CategoryValidator {
	v := &CategoryValidator{byName: make(map[string]string, len(categories))}
	for _, c := range categories {
		key := normalizeName(c.Name)
		if key == "" {
			continue
		}
		if _, dup := v.byName[key]; dup {
			continue
		}
		v.byName[key] = c.ID
		v.names = append(v.names, c.Name)
	}
	return v
}

// Names returns the category names offered to the model.
func (v *CategoryValidator) Names() []string {
	return v.names
}

// Resolve returns the category ID for name; ok is false when the name does
// not match any category.
func (v *CategoryValidator) Resolve(name string) (string, bool) {
	id, ok := v.byName[normalizeName(name)]
	return id, ok
}

// normalizeName upper-cases and collapses whitespace for comparison.
func normalizeName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}
