package domain

import "strings"

// MealType is the meal slot a capacity or donation applies to.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Snacks    MealType = "snacks"
	Dinner    MealType = "dinner"
)

// AllMealTypes is the canonical day order; listings sort by it.
var AllMealTypes = []MealType{Breakfast, Lunch, Snacks, Dinner}

// ParseMealType accepts any casing ("LUNCH", "Lunch", "lunch").
func ParseMealType(s string) (MealType, error) {
	m := MealType(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", InvalidArgument("Invalid meal_type. Must be one of: breakfast, lunch, snacks, dinner")
	}
	return m, nil
}

func (m MealType) Valid() bool {
	return m.Order() >= 0
}

// Order returns the position of m in AllMealTypes, or -1.
func (m MealType) Order() int {
	for i, mt := range AllMealTypes {
		if mt == m {
			return i
		}
	}
	return -1
}
