package services

import (
	"errors"
	"testing"

	"meal-admin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"vegan", []string{"vegan"}},
		{"vegan, gluten-free ,spicy", []string{"vegan", "gluten-free", "spicy"}},
		{"a,,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseList(tt.in), "ParseList(%q)", tt.in)
	}
}

func TestValidateMealInput(t *testing.T) {
	f, err := ValidateMealInput(models.MealInput{
		Name:        " Doro Wat ",
		BasePrice:   "320.50",
		DietaryTags: "spicy, halal",
	})
	require.NoError(t, err)
	assert.Equal(t, "Doro Wat", f.Name)
	assert.Equal(t, 320.5, f.BasePrice)
	assert.True(t, f.IsAvailable)
	assert.Nil(t, f.CategoryID)
	assert.Nil(t, f.ImageURL)
	assert.Nil(t, f.Ingredients)
	assert.Equal(t, []string{"spicy", "halal"}, f.DietaryTags)

	unavailable := false
	f, err = ValidateMealInput(models.MealInput{Name: "x", BasePrice: "0", IsAvailable: &unavailable, CategoryID: "c1", ImageURL: "http://img"})
	require.NoError(t, err)
	assert.False(t, f.IsAvailable)
	require.NotNil(t, f.CategoryID)
	assert.Equal(t, "c1", *f.CategoryID)
	require.NotNil(t, f.ImageURL)
}

func TestValidateMealInputErrors(t *testing.T) {
	tests := []struct {
		name string
		in   models.MealInput
	}{
		{"missing name", models.MealInput{BasePrice: "10"}},
		{"blank name", models.MealInput{Name: "  ", BasePrice: "10"}},
		{"missing price", models.MealInput{Name: "x"}},
		{"bad price", models.MealInput{Name: "x", BasePrice: "ten"}},
		{"negative price", models.MealInput{Name: "x", BasePrice: "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateMealInput(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMeal))
		})
	}
}

func TestFilterMeals(t *testing.T) {
	meals := []models.Meal{{Name: "Shiro"}, {Name: "Key Wat"}, {Name: "Alicha Wat"}}
	assert.Len(t, FilterMeals(meals, "wat"), 2)
	assert.Len(t, FilterMeals(meals, ""), 3)
	assert.Empty(t, FilterMeals(meals, "pizza"))
}
