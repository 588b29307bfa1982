package main

import (
	"strconv"
	"strings"
)

// formatMeal shapes a schedule row into the ordered five-slot meal plan and
// its calorie total. A missing row yields an empty plan and a total of 0.
func formatMeal(row scheduleRow, found bool) (mealPlan, int) {
	if !found {
		return mealPlan{}, 0
	}
	plan := make(mealPlan, 0, len(mealSlots))
	total := 0
	for i, slot := range mealSlots {
		plan = append(plan, namedMeal{Slot: slot, meal: row.Meals[i]})
		total += row.Meals[i].Calories
	}
	return plan, total
}

// formatExercise returns the row's exercise with its name decoded, or an
// empty object when the row is missing.
func formatExercise(row scheduleRow, found bool, enc *categoryEncoder) any {
	if !found {
		return struct{}{}
	}
	ex := row.Exercise
	ex.Name = exerciseLabel(ex.Name, enc)
	return ex
}

// exerciseLabel decodes an encoded exercise index back to its label. Values
// the encoder does not know, including plain labels, are returned unchanged.
func exerciseLabel(raw string, enc *categoryEncoder) string {
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if label, ok := enc.Decode(categoryExercise, code); ok {
		return label
	}
	return raw
}
