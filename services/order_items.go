package services

import "meal-admin/models"

// MealPlaceholder is shown when an item references a meal that no longer exists.
const MealPlaceholder = "Meal"

// ResolveOrderItems attaches display-ready items to every order. Items are
// matched to orders through the meal plan id, meals through their id. Missing
// meals are tolerated: the reference is left nil and the display name falls
// back to MealPlaceholder. Every order ends up with a non-nil Items slice.
func ResolveOrderItems(orders []models.Order, items []models.MealPlanItem, meals map[string]models.MealRef) {
	byPlan := make(map[string][]models.MealPlanItem)
	for _, it := range items {
		byPlan[it.MealPlanID] = append(byPlan[it.MealPlanID], it)
	}
	for i := range orders {
		resolved := []models.OrderItem{}
		if orders[i].MealPlanID != nil {
			for _, it := range byPlan[*orders[i].MealPlanID] {
				resolved = append(resolved, resolveItem(it, meals))
			}
		}
		orders[i].Items = resolved
	}
}

// IsHalfHalf reports whether an item is a dual-portion meal: either both half
// references are present or the item is explicitly flagged.
func IsHalfHalf(it models.MealPlanItem) bool {
	if it.HalfMeal1ID != nil && it.HalfMeal2ID != nil {
		return true
	}
	return it.IsHalfHalf != nil && *it.IsHalfHalf
}

func resolveItem(it models.MealPlanItem, meals map[string]models.MealRef) models.OrderItem {
	out := models.OrderItem{
		ID:           it.ID,
		Quantity:     it.Quantity,
		UnitPrice:    it.UnitPrice,
		DeliveryDate: it.DeliveryDate,
		IsHalfHalf:   IsHalfHalf(it),
	}
	if it.MealType != nil {
		out.MealType = *it.MealType
	}
	if it.DeliveryTimeSlot != nil {
		out.DeliveryTimeSlot = *it.DeliveryTimeSlot
	}
	out.Meal = lookupMeal(it.MealID, meals)
	out.HalfMeal1 = lookupMeal(it.HalfMeal1ID, meals)
	out.HalfMeal2 = lookupMeal(it.HalfMeal2ID, meals)
	if out.IsHalfHalf {
		out.DisplayName = mealName(out.HalfMeal1) + " / " + mealName(out.HalfMeal2)
	} else {
		out.DisplayName = mealName(out.Meal)
	}
	return out
}

func lookupMeal(id *string, meals map[string]models.MealRef) *models.MealRef {
	if id == nil {
		return nil
	}
	m, ok := meals[*id]
	if !ok {
		return nil
	}
	return &m
}

func mealName(m *models.MealRef) string {
	if m == nil || m.Name == "" {
		return MealPlaceholder
	}
	return m.Name
}

// referencedMealIDs returns the distinct meal ids used by items, in first-seen order.
func referencedMealIDs(items []models.MealPlanItem) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id *string) {
		if id == nil || *id == "" {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	for _, it := range items {
		add(it.MealID)
		add(it.HalfMeal1ID)
		add(it.HalfMeal2ID)
	}
	return ids
}

// mealPlanIDs returns the distinct meal plan ids of orders.
func mealPlanIDs(orders []models.Order) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, o := range orders {
		if o.MealPlanID == nil {
			continue
		}
		if _, ok := seen[*o.MealPlanID]; ok {
			continue
		}
		seen[*o.MealPlanID] = struct{}{}
		ids = append(ids, *o.MealPlanID)
	}
	return ids
}
