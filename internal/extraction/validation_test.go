package extraction

import (
	"testing"

	"github.com/bilix/bilix/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCategoryValidator_Resolve(t *testing.T) {
	v := NewCategoryValidator([]domain.Category{
		{ID: "c1", Name: "Office Supplies"},
		{ID: "c2", Name: "Travel"},
		{ID: "c3", Name: "travel"},
		{ID: "c4", Name: "  "},
	})

	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"exact", "Travel", "c2", true},
		{"different case", "OFFICE SUPPLIES", "c1", true},
		{"extra whitespace", "  office   supplies ", "c1", true},
		{"unknown", "Rent", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := v.Resolve(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}

	assert.Equal(t, []string{"Office Supplies", "Travel"}, v.Names())
}
