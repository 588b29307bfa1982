package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	choiceMeal     = "meal"
	choiceExercise = "exercise"
)

// recommend handles POST /recommend. It validates the body, runs both
// classifiers (their labels are not part of the response), and returns the
// scheduled meal plan or exercise for the requested week and day with the
// caller's BMI.
func (h *Handler) recommend(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		apiError(c, invalidInput("unable to read request body"))
		return
	}

	req, err := decodeRecommendRequest(body)
	if err != nil {
		apiError(c, err)
		return
	}

	q, err := h.encodeQuery(req)
	if err != nil {
		apiError(c, err)
		return
	}

	if err := h.predict(c, q); err != nil {
		apiError(c, err)
		return
	}

	row, found := h.schedule.lookup(q.Week, q.Day)

	switch *req.Choice {
	case choiceMeal:
		plan, total := formatMeal(row, found)
		c.PureJSON(http.StatusOK, mealResponse{BMI: q.BMI, MealPlan: plan, TotalCalories: total})
	case choiceExercise:
		c.PureJSON(http.StatusOK, exerciseResponse{BMI: q.BMI, Exercise: formatExercise(row, found, h.encoder)})
	}
}

// decodeRecommendRequest parses and validates a /recommend body. The choice is
// checked before anything else; field types and presence come next.
func decodeRecommendRequest(body []byte) (recommendRequest, error) {
	var req recommendRequest
	if len(strings.TrimSpace(string(body))) == 0 {
		return req, invalidInput("request body is required")
	}

	// Unmarshal keeps filling the struct after a type mismatch and reports the
	// first one, so choice is readable even when another field is malformed.
	decodeErr := json.Unmarshal(body, &req)
	var typeErr *json.UnmarshalTypeError
	if decodeErr != nil && !errors.As(decodeErr, &typeErr) {
		return req, invalidInput("invalid JSON body")
	}

	if req.Choice == nil || (*req.Choice != choiceMeal && *req.Choice != choiceExercise) {
		return req, invalidChoice(req.Choice)
	}
	if typeErr != nil {
		return req, invalidInput("%s must be %s", typeErr.Field, jsonKind(typeErr.Type))
	}

	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return req, validationMessage(err)
	}
	return req, nil
}

// encodeQuery maps the request's category fields to their codes. An unknown
// label stops the request before any prediction or lookup.
func (h *Handler) encodeQuery(req recommendRequest) (userQuery, error) {
	gender, ok := h.encoder.Encode(categoryGender, *req.Gender)
	if !ok {
		return userQuery{}, unknownCategory("Gender", *req.Gender)
	}
	workout, ok := h.encoder.Encode(categoryWorkout, *req.WorkoutHistory)
	if !ok {
		return userQuery{}, unknownCategory("Workout_History", *req.WorkoutHistory)
	}
	goal, ok := h.encoder.Encode(categoryGoal, *req.Goal)
	if !ok {
		return userQuery{}, unknownCategory("Goal", *req.Goal)
	}

	bmi := calculateBMI(*req.WeightKG, *req.HeightCM)
	if math.IsInf(bmi, 0) || math.IsNaN(bmi) {
		return userQuery{}, invalidInput("Height_cm and Weight_kg give an out-of-range BMI")
	}

	return userQuery{
		Gender:         gender,
		Age:            *req.Age,
		HeightCM:       *req.HeightCM,
		WeightKG:       *req.WeightKG,
		WorkoutHistory: workout,
		Goal:           goal,
		Week:           *req.Week,
		Day:            *req.Day,
		BMI:            bmi,
	}, nil
}

// predict runs both classifiers. The labels are only logged when
// DEBUG_PREDICTIONS is set; a failing model still fails the request.
// TODO: confirm with product whether the predictions should pick the plan.
func (h *Handler) predict(c *gin.Context, q userQuery) error {
	features, err := h.features.Transform(q)
	if err != nil {
		return internalFailure(fmt.Errorf("preprocessing features: %w", err))
	}
	goal, err := h.goalModel.Predict(features)
	if err != nil {
		return internalFailure(fmt.Errorf("goal model: %w", err))
	}
	exercise, err := h.exerciseModel.Predict(features)
	if err != nil {
		return internalFailure(fmt.Errorf("exercise model: %w", err))
	}
	if h.debugPredictions {
		log.Printf("[recommend] request %s predictions: goal=%q exercise=%q",
			c.GetString("request_id"), goal, exercise)
	}
	return nil
}

/* ─── Validation messages ────────────────────────────────────────────── */

// registerFieldNames makes validator errors report JSON field names
// (e.g. "Height_cm") instead of Go struct field names.
func registerFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// validationMessage turns the first validator failure into an InvalidInput error.
func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalidInput("invalid request: %v", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return invalidInput("%s is required", fe.Field())
	case "gt":
		return invalidInput("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return invalidInput("%s is invalid", fe.Field())
	}
}

// jsonKind names a Go type the way API clients see it.
func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	default:
		return "a " + t.Kind().String()
	}
}
