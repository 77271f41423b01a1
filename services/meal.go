package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"meal-admin/db"
	"meal-admin/models"

	"github.com/jackc/pgx/v5"
)

var ErrInvalidMeal = errors.New("invalid meal")

// mealFields is a validated MealInput ready to be written.
type mealFields struct {
	Name        string
	Description string
	BasePrice   float64
	CategoryID  *string
	IsAvailable bool
	ImageURL    *string
	DietaryTags []string
	Ingredients []string
}

// ParseList splits a comma-separated list and trims each entry. Empty entries
// are dropped; an empty list is nil so it is stored as NULL.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateMealInput checks the form values and converts them to column values.
func ValidateMealInput(in models.MealInput) (mealFields, error) {
	var f mealFields
	f.Name = strings.TrimSpace(in.Name)
	if f.Name == "" {
		return f, fmt.Errorf("%w: name is required", ErrInvalidMeal)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(in.BasePrice), 64)
	if err != nil {
		return f, fmt.Errorf("%w: base price %q is not a number", ErrInvalidMeal, in.BasePrice)
	}
	if price < 0 {
		return f, fmt.Errorf("%w: base price must be >= 0", ErrInvalidMeal)
	}
	f.BasePrice = price
	f.Description = in.Description
	if id := strings.TrimSpace(in.CategoryID); id != "" {
		f.CategoryID = &id
	}
	f.IsAvailable = in.IsAvailable == nil || *in.IsAvailable
	if u := strings.TrimSpace(in.ImageURL); u != "" {
		f.ImageURL = &u
	}
	f.DietaryTags = ParseList(in.DietaryTags)
	f.Ingredients = ParseList(in.Ingredients)
	return f, nil
}

const mealColumns = `
	id::text, name, COALESCE(description, ''), base_price::float8, category_id::text,
	COALESCE(is_available, true), COALESCE(image_url, ''), dietary_tags, ingredients,
	COALESCE(meal_type, ''), preparation_time, COALESCE(created_at, 'epoch'::timestamptz)
	FROM meals`

func scanMeal(row rowScanner) (models.Meal, error) {
	var m models.Meal
	err := row.Scan(
		&m.ID, &m.Name, &m.Description, &m.BasePrice, &m.CategoryID,
		&m.IsAvailable, &m.ImageURL, &m.DietaryTags, &m.Ingredients,
		&m.MealType, &m.PreparationTime, &m.CreatedAt,
	)
	return m, err
}

// ListMeals returns the catalog, newest first.
func ListMeals(ctx context.Context) ([]models.Meal, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+mealColumns+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("fetch meals: %w", err)
	}
	defer rows.Close()

	meals := []models.Meal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch meals: %w", err)
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

func GetMeal(ctx context.Context, id string) (*models.Meal, error) {
	m, err := scanMeal(db.Pool.QueryRow(ctx, `SELECT `+mealColumns+` WHERE id = $1::uuid`, id))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FilterMeals keeps meals whose name contains q, ignoring case.
func FilterMeals(meals []models.Meal, q string) []models.Meal {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return meals
	}
	out := []models.Meal{}
	for _, m := range meals {
		if strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}

// CreateMeal validates in and inserts a meal, returning its id.
func CreateMeal(ctx context.Context, in models.MealInput) (string, error) {
	f, err := ValidateMealInput(in)
	if err != nil {
		return "", err
	}
	var id string
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO meals (name, description, base_price, category_id, is_available, image_url, dietary_tags, ingredients)
		VALUES ($1, $2, $3, $4::uuid, $5, $6, $7, $8)
		RETURNING id::text`,
		f.Name, f.Description, f.BasePrice, f.CategoryID, f.IsAvailable, f.ImageURL, f.DietaryTags, f.Ingredients,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create meal: %w", err)
	}
	return id, nil
}

// UpdateMeal validates in and overwrites the editable fields of a meal.
func UpdateMeal(ctx context.Context, id string, in models.MealInput) error {
	f, err := ValidateMealInput(in)
	if err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE meals SET
			name = $1, description = $2, base_price = $3, category_id = $4::uuid,
			is_available = $5, image_url = $6, dietary_tags = $7, ingredients = $8,
			updated_at = now()
		WHERE id = $9::uuid`,
		f.Name, f.Description, f.BasePrice, f.CategoryID, f.IsAvailable, f.ImageURL, f.DietaryTags, f.Ingredients, id,
	)
	if err != nil {
		return fmt.Errorf("update meal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func DeleteMeal(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM meals WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete meal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListCategories returns the active categories in display order.
func ListCategories(ctx context.Context) ([]models.MealCategory, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id::text, name, COALESCE(sort_order, 0)
		FROM meal_categories
		WHERE is_active = true
		ORDER BY sort_order`,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	defer rows.Close()

	categories := []models.MealCategory{}
	for rows.Next() {
		var c models.MealCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
