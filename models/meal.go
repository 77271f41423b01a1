package models

import "time"

type Meal struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	BasePrice       float64   `json:"base_price"`
	CategoryID      *string   `json:"category_id"`
	IsAvailable     bool      `json:"is_available"`
	ImageURL        string    `json:"image_url"`
	DietaryTags     []string  `json:"dietary_tags"`
	Ingredients     []string  `json:"ingredients"`
	MealType        string    `json:"meal_type"`
	PreparationTime *int      `json:"preparation_time"`
	CreatedAt       time.Time `json:"created_at"`
}

// MealInput is the create/update form of a meal. DietaryTags and Ingredients
// are comma-separated lists as typed by the admin.
type MealInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BasePrice   string `json:"base_price"`
	CategoryID  string `json:"category_id"`
	IsAvailable *bool  `json:"is_available"`
	ImageURL    string `json:"image_url"`
	DietaryTags string `json:"dietary_tags"`
	Ingredients string `json:"ingredients"`
}

type MealCategory struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}
