package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Category names understood by categoryEncoder.
const (
	categoryGender   = "gender"
	categoryWorkout  = "workout"
	categoryGoal     = "goal"
	categoryExercise = "exercise"
)

// featureColumns are the preprocessor inputs the service can provide.
var featureColumns = map[string]func(q userQuery) float64{
	"Gender":          func(q userQuery) float64 { return float64(q.Gender) },
	"Age":             func(q userQuery) float64 { return q.Age },
	"Height_cm":       func(q userQuery) float64 { return q.HeightCM },
	"Weight_kg":       func(q userQuery) float64 { return q.WeightKG },
	"Workout_History": func(q userQuery) float64 { return float64(q.WorkoutHistory) },
	"Goal":            func(q userQuery) float64 { return float64(q.Goal) },
	"Week":            func(q userQuery) float64 { return float64(q.Week) },
	"Day":             func(q userQuery) float64 { return float64(q.Day) },
	"BMI":             func(q userQuery) float64 { return q.BMI },
}

// classifier predicts a class label from a feature vector.
type classifier interface {
	Predict(features []float64) (string, error)
}

// featureTransformer turns a query into the classifiers' feature vector.
type featureTransformer interface {
	Transform(q userQuery) ([]float64, error)
}

/* ─── Category encoder ───────────────────────────────────────────────── */

// categoryEncoder maps category labels to integer codes and back. A label's
// code is its index in the category's class list.
type categoryEncoder struct {
	classes map[string][]string
	codes   map[string]map[string]int
}

func newCategoryEncoder(classes map[string][]string) (*categoryEncoder, error) {
	e := &categoryEncoder{
		classes: make(map[string][]string, len(classes)),
		codes:   make(map[string]map[string]int, len(classes)),
	}
	for cat, labels := range classes {
		codes := make(map[string]int, len(labels))
		for i, l := range labels {
			if _, dup := codes[l]; dup {
				return nil, fmt.Errorf("category %s: duplicate class %q", cat, l)
			}
			codes[l] = i
		}
		e.classes[cat] = append([]string(nil), labels...)
		e.codes[cat] = codes
	}
	return e, nil
}

// Encode returns the code of value within category. ok=false means the
// encoder has never seen the value.
func (e *categoryEncoder) Encode(category, value string) (int, bool) {
	code, ok := e.codes[category][value]
	return code, ok
}

// Decode returns the label for code within category, if there is one.
func (e *categoryEncoder) Decode(category string, code int) (string, bool) {
	labels := e.classes[category]
	if code < 0 || code >= len(labels) {
		return "", false
	}
	return labels[code], true
}

/* ─── Preprocessor ───────────────────────────────────────────────────── */

// standardScaler centers and scales the configured columns.
type standardScaler struct {
	columns []string
	mean    []float64
	scale   []float64
}

func newStandardScaler(columns []string, mean, scale []float64) (*standardScaler, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("preprocessor has no columns")
	}
	if len(mean) != len(columns) || len(scale) != len(columns) {
		return nil, fmt.Errorf("preprocessor has %d columns but %d means and %d scales",
			len(columns), len(mean), len(scale))
	}
	for _, c := range columns {
		if _, ok := featureColumns[c]; !ok {
			return nil, fmt.Errorf("preprocessor column %q is not a known feature", c)
		}
	}
	s := &standardScaler{
		columns: append([]string(nil), columns...),
		mean:    append([]float64(nil), mean...),
		scale:   make([]float64, len(scale)),
	}
	// A zero-variance column is left unscaled.
	for i, v := range scale {
		if v == 0 {
			v = 1
		}
		s.scale[i] = v
	}
	return s, nil
}

func (s *standardScaler) Transform(q userQuery) ([]float64, error) {
	out := make([]float64, len(s.columns))
	for i, c := range s.columns {
		get, ok := featureColumns[c]
		if !ok {
			return nil, fmt.Errorf("unknown feature column %q", c)
		}
		out[i] = (get(q) - s.mean[i]) / s.scale[i]
	}
	return out, nil
}

/* ─── Linear classifier ──────────────────────────────────────────────── */

// linearClassifier scores each class as coef·x + intercept and predicts the
// highest-scoring class.
type linearClassifier struct {
	classes   []string
	coef      [][]float64
	intercept []float64
}

func newLinearClassifier(classes []string, coef [][]float64, intercept []float64) (*linearClassifier, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("model has no classes")
	}
	if len(coef) != len(classes) || len(intercept) != len(classes) {
		return nil, fmt.Errorf("model has %d classes but %d coefficient rows and %d intercepts",
			len(classes), len(coef), len(intercept))
	}
	width := len(coef[0])
	if width == 0 {
		return nil, fmt.Errorf("model has empty coefficient rows")
	}
	for i, row := range coef {
		if len(row) != width {
			return nil, fmt.Errorf("coefficient row %d has width %d, want %d", i, len(row), width)
		}
	}
	return &linearClassifier{classes: classes, coef: coef, intercept: intercept}, nil
}

func (m *linearClassifier) Predict(features []float64) (string, error) {
	if len(features) != len(m.coef[0]) {
		return "", fmt.Errorf("model expects %d features, got %d", len(m.coef[0]), len(features))
	}
	best, bestScore := 0, 0.0
	for i, row := range m.coef {
		score := m.intercept[i]
		for j, w := range row {
			score += w * features[j]
		}
		if i == 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	return m.classes[best], nil
}

/* ─── File loading ───────────────────────────────────────────────────── */

// encodersFile is the on-disk shape of the encoders artifact.
type encodersFile struct {
	Gender       []string `json:"gender"`
	Workout      []string `json:"workout"`
	Goal         []string `json:"goal"`
	Exercise     []string `json:"exercise"`
	Preprocessor struct {
		Columns []string  `json:"columns"`
		Mean    []float64 `json:"mean"`
		Scale   []float64 `json:"scale"`
	} `json:"preprocessor"`
}

// modelFile is the on-disk shape of a classifier artifact.
type modelFile struct {
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// loadEncoders reads the category encoders and the feature preprocessor,
// which share one artifact file.
func loadEncoders(path string) (*categoryEncoder, *standardScaler, error) {
	var f encodersFile
	if err := readJSONFile(path, &f); err != nil {
		return nil, nil, err
	}
	for name, labels := range map[string][]string{
		categoryGender:  f.Gender,
		categoryWorkout: f.Workout,
		categoryGoal:    f.Goal,
	} {
		if len(labels) == 0 {
			return nil, nil, fmt.Errorf("%s: encoder %q has no classes", path, name)
		}
	}

	enc, err := newCategoryEncoder(map[string][]string{
		categoryGender:   f.Gender,
		categoryWorkout:  f.Workout,
		categoryGoal:     f.Goal,
		categoryExercise: f.Exercise,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	scaler, err := newStandardScaler(f.Preprocessor.Columns, f.Preprocessor.Mean, f.Preprocessor.Scale)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return enc, scaler, nil
}

func loadClassifier(path string) (*linearClassifier, error) {
	var f modelFile
	if err := readJSONFile(path, &f); err != nil {
		return nil, err
	}
	m, err := newLinearClassifier(f.Classes, f.Coef, f.Intercept)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
