package models

import (
	"fmt"
	"time"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderStatuses lists every status an admin may set, in workflow order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Order is a row from the orders table joined with the customer's profile name.
type Order struct {
	ID               string          `json:"id"`
	OrderNumber      string          `json:"order_number"`
	UserID           string          `json:"user_id"`
	Subtotal         float64         `json:"subtotal"`
	DeliveryFee      float64         `json:"delivery_fee"`
	DiscountAmount   float64         `json:"discount_amount"`
	TotalAmount      float64         `json:"total_amount"`
	Status           string          `json:"status"`
	PaymentStatus    string          `json:"payment_status"`
	PaymentMethod    string          `json:"payment_method"`
	DeliveryAddress  DeliveryAddress `json:"delivery_address"`
	DeliveryDate     *time.Time      `json:"delivery_date,omitempty"`
	DeliveryTimeSlot string          `json:"delivery_time_slot"`
	Notes            string          `json:"notes"`
	MealPlanID       *string         `json:"meal_plan_id"`
	CreatedAt        time.Time       `json:"created_at"`
	Customer         PersonName      `json:"customer"`
	Items            []OrderItem     `json:"items"`
}

// PersonName is the first/last name pair taken from profiles.
type PersonName struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (p PersonName) Full() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// DeliveryAddress is the semi-structured delivery_address JSON column.
type DeliveryAddress map[string]any

// AddressLine is one labelled line of a delivery address.
type AddressLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var addressFields = []struct{ key, label string }{
	{"street", "Street"},
	{"city", "City"},
	{"campus", "Campus"},
	{"zone", "Zone"},
	{"building_number", "Building"},
	{"floor", "Floor"},
	{"special_instructions", "Instructions"},
}

// Lines returns the known address fields that are set, in display order.
func (a DeliveryAddress) Lines() []AddressLine {
	var lines []AddressLine
	for _, f := range addressFields {
		v, ok := a[f.key]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if s == "" {
			continue
		}
		lines = append(lines, AddressLine{Label: f.label, Value: s})
	}
	return lines
}

// MealPlanItem is a raw meal_plan_items row. Exactly one of MealID or the
// half-meal pair is expected to be set.
type MealPlanItem struct {
	ID               string
	MealPlanID       string
	MealID           *string
	HalfMeal1ID      *string
	HalfMeal2ID      *string
	IsHalfHalf       *bool
	Quantity         int
	UnitPrice        float64
	MealType         *string
	DeliveryDate     *time.Time
	DeliveryTimeSlot *string
}

// MealRef is the display data of a meal referenced by an order item.
type MealRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// OrderItem is a display-ready meal plan item.
type OrderItem struct {
	ID               string     `json:"id"`
	Quantity         int        `json:"quantity"`
	UnitPrice        float64    `json:"unit_price"`
	MealType         string     `json:"meal_type"`
	DeliveryDate     *time.Time `json:"delivery_date,omitempty"`
	DeliveryTimeSlot string     `json:"delivery_time_slot"`
	IsHalfHalf       bool       `json:"is_half_half"`
	Meal             *MealRef   `json:"meal"`
	HalfMeal1        *MealRef   `json:"half_meal_1"`
	HalfMeal2        *MealRef   `json:"half_meal_2"`
	DisplayName      string     `json:"display_name"`
}
