package main

import (
	"bytes"
	"encoding/json"
)

// mealSlots is the fixed order of the five daily meals. Clients rely on the
// key order of Meal_Plan, so serialization always follows this slice.
var mealSlots = []string{"Breakfast", "Snack_1", "Lunch", "Snack_2", "Dinner"}

/* ─── Schedule ───────────────────────────────────────────────────────── */

// meal is one slot of a day's meal plan.
type meal struct {
	Meal     string `json:"Meal"`
	Calories int    `json:"Calories"`
}

// exerciseEntry is the exercise part of a schedule row. Duration is kept as
// read from the source: an int64 or float64 when the cell is numeric, a
// string otherwise, so it round-trips to JSON unchanged.
type exerciseEntry struct {
	Name        string `json:"Exercise_Name"`
	Description string `json:"Exercise_Description"`
	Duration    any    `json:"Exercise_Duration"`
}

// scheduleRow is one (Week, Day) entry of the schedule table. Meals is indexed
// like mealSlots. Exercise.Name may still be an encoded category index.
type scheduleRow struct {
	Week     int
	Day      int
	Meals    [5]meal
	Exercise exerciseEntry
}

// scheduleDBRow is the shape of the schedule_rows table. Used only for
// scanning; converted with toScheduleRow.
type scheduleDBRow struct {
	Week                int    `db:"week"`
	Day                 int    `db:"day"`
	Breakfast           string `db:"breakfast"`
	CaloriesBreakfast   int    `db:"calories_breakfast"`
	Snack1              string `db:"snack_1"`
	CaloriesSnack1      int    `db:"calories_snack_1"`
	Lunch               string `db:"lunch"`
	CaloriesLunch       int    `db:"calories_lunch"`
	Snack2              string `db:"snack_2"`
	CaloriesSnack2      int    `db:"calories_snack_2"`
	Dinner              string `db:"dinner"`
	CaloriesDinner      int    `db:"calories_dinner"`
	ExerciseName        string `db:"exercise_name"`
	ExerciseDescription string `db:"exercise_description"`
	ExerciseDuration    string `db:"exercise_duration"`
}

/* ─── Request / Response types ───────────────────────────────────────── */

// recommendRequest is the request body for POST /recommend. Pointer fields
// distinguish "missing" from zero so the validator can report absent fields.
type recommendRequest struct {
	Gender         *string  `json:"Gender"          binding:"required"`
	Age            *float64 `json:"Age"             binding:"required"`
	HeightCM       *float64 `json:"Height_cm"       binding:"required,gt=0"`
	WeightKG       *float64 `json:"Weight_kg"       binding:"required,gt=0"`
	WorkoutHistory *string  `json:"Workout_History" binding:"required"`
	Goal           *string  `json:"Goal"            binding:"required"`
	Week           *int     `json:"Week"            binding:"required"`
	Day            *int     `json:"Day"             binding:"required"`
	Choice         *string  `json:"choice"`
}

// userQuery is a validated request with its categories encoded. It is the
// input of the feature preprocessor.
type userQuery struct {
	Gender         int
	Age            float64
	HeightCM       float64
	WeightKG       float64
	WorkoutHistory int
	Goal           int
	Week           int
	Day            int
	BMI            float64
}

// namedMeal pairs a meal with its slot name for ordered serialization.
type namedMeal struct {
	Slot string
	meal
}

// mealPlan serializes as a JSON object whose keys keep slice order.
// An empty plan serializes as {}.
type mealPlan []namedMeal

func (p mealPlan) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, m := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(m.Slot); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := enc.Encode(m.meal); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// mealResponse is the 200 body for choice="meal".
type mealResponse struct {
	BMI           float64  `json:"BMI"`
	MealPlan      mealPlan `json:"Meal_Plan"`
	TotalCalories int      `json:"Total_Calories"`
}

// exerciseResponse is the 200 body for choice="exercise". Exercise is either
// an exerciseEntry or an empty object when the day has no row.
type exerciseResponse struct {
	BMI      float64 `json:"BMI"`
	Exercise any     `json:"Exercise"`
}
