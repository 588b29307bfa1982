package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// stubClassifier records calls and returns a fixed label or error.
type stubClassifier struct {
	label string
	err   error
	calls int
}

func (s *stubClassifier) Predict(features []float64) (string, error) {
	s.calls++
	return s.label, s.err
}

// newTestHandler builds a Handler around the test schedule and encoder with
// stub classifiers, so no files are needed.
func newTestHandler(t *testing.T) (*Handler, *stubClassifier, *stubClassifier) {
	t.Helper()
	scaler, err := newStandardScaler(
		[]string{"Gender", "Age", "Height_cm", "Weight_kg", "Workout_History", "Goal", "Week", "Day", "BMI"},
		make([]float64, 9),
		[]float64{1, 1, 1, 1, 1, 1, 1, 1, 1},
	)
	if err != nil {
		t.Fatalf("newStandardScaler: %v", err)
	}

	goal := &stubClassifier{label: "Weight Loss"}
	exercise := &stubClassifier{label: "Plank"}
	h := &Handler{
		schedule:      mustSchedule(t),
		encoder:       testEncoder(t),
		features:      scaler,
		goalModel:     goal,
		exerciseModel: exercise,
	}
	return h, goal, exercise
}

// setupRecommendTest returns a test-mode router with the API routes registered.
func setupRecommendTest(t *testing.T) (*gin.Engine, *stubClassifier, *stubClassifier) {
	t.Helper()
	h, goal, exercise := newTestHandler(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.registerRoutes(router)
	return router, goal, exercise
}

// doRecommendRequest sends a POST to /recommend with the given body.
func doRecommendRequest(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/recommend", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// recommendBody returns a valid request body with the given overrides applied.
// A nil override removes the field.
func recommendBody(t *testing.T, overrides map[string]any) string {
	t.Helper()
	body := map[string]any{
		"Gender":          "Male",
		"Age":             30,
		"Height_cm":       175,
		"Weight_kg":       70,
		"Workout_History": "Beginner",
		"Goal":            "Weight Loss",
		"Week":            1,
		"Day":             1,
		"choice":          "meal",
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
			continue
		}
		body[k] = v
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

// errorBody decodes a 400 response.
func errorBody(t *testing.T, w *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp.Error, resp.Code
}

/* ─── Success paths ──────────────────────────────────────────────────── */

func TestRecommend_Meal(t *testing.T) {
	router, goal, exercise := setupRecommendTest(t)

	w := doRecommendRequest(router, recommendBody(t, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	want := `{"BMI":22.857142857142858,"Meal_Plan":{` +
		`"Breakfast":{"Meal":"Oatmeal","Calories":350},` +
		`"Snack_1":{"Meal":"Apple","Calories":95},` +
		`"Lunch":{"Meal":"Chicken salad","Calories":520},` +
		`"Snack_2":{"Meal":"Almonds","Calories":170},` +
		`"Dinner":{"Meal":"Salmon & rice","Calories":650}},` +
		`"Total_Calories":1785}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("unexpected body:\n got %s\nwant %s", got, want)
	}
	if goal.calls != 1 || exercise.calls != 1 {
		t.Errorf("expected each model called once, got goal=%d exercise=%d", goal.calls, exercise.calls)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRecommend_Exercise(t *testing.T) {
	router, _, _ := setupRecommendTest(t)

	w := doRecommendRequest(router, recommendBody(t, map[string]any{"choice": "exercise", "Day": 2}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	want := `{"BMI":22.857142857142858,"Exercise":{"Exercise_Name":"Running",` +
		`"Exercise_Description":"Easy pace","Exercise_Duration":"45 min"}}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("unexpected body:\n got %s\nwant %s", got, want)
	}
}

func TestRecommend_ExerciseDecodesEncodedName(t *testing.T) {
	router, _, _ := setupRecommendTest(t)

	w := doRecommendRequest(router, recommendBody(t, map[string]any{"choice": "exercise"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Exercise map[string]any `json:"Exercise"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Exercise["Exercise_Name"] != "Plank" {
		t.Errorf("expected Exercise_Name 'Plank', got %v", resp.Exercise["Exercise_Name"])
	}
	if resp.Exercise["Exercise_Duration"] != float64(30) {
		t.Errorf("expected numeric Exercise_Duration 30, got %#v", resp.Exercise["Exercise_Duration"])
	}
}

// TestRecommend_MissingRow verifies a (week, day) with no schedule row yields
// empty structures with 200, not an error.
func TestRecommend_MissingRow(t *testing.T) {
	router, _, _ := setupRecommendTest(t)

	w := doRecommendRequest(router, recommendBody(t, map[string]any{"Week": 9, "Day": 9}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := `{"BMI":22.857142857142858,"Meal_Plan":{},"Total_Calories":0}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("unexpected body:\n got %s\nwant %s", got, want)
	}

	w = doRecommendRequest(router, recommendBody(t, map[string]any{"Week": 9, "Day": 9, "choice": "exercise"}))
	want = `{"BMI":22.857142857142858,"Exercise":{}}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("unexpected body:\n got %s\nwant %s", got, want)
	}
}

// TestRecommend_Idempotent verifies identical requests produce byte-identical bodies.
func TestRecommend_Idempotent(t *testing.T) {
	router, _, _ := setupRecommendTest(t)

	for _, choice := range []string{"meal", "exercise"} {
		body := recommendBody(t, map[string]any{"choice": choice})
		first := doRecommendRequest(router, body).Body.String()
		second := doRecommendRequest(router, body).Body.String()
		if first != second {
			t.Errorf("%s: responses differ:\n%s\n%s", choice, first, second)
		}
	}
}

/* ─── Error paths ────────────────────────────────────────────────────── */

func TestRecommend_InvalidChoice(t *testing.T) {
	router, goal, _ := setupRecommendTest(t)

	cases := []struct {
		name      string
		overrides map[string]any
	}{
		{"unknown value", map[string]any{"choice": "diet"}},
		{"missing", map[string]any{"choice": nil}},
		{"wrong type", map[string]any{"choice": 5}},
		{"wrong case", map[string]any{"choice": "Meal"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, code := errorBody(t, doRecommendRequest(router, recommendBody(t, tc.overrides)))
			if code != string(errInvalidChoice) {
				t.Errorf("expected code %s, got %s", errInvalidChoice, code)
			}
			if !strings.Contains(msg, "Invalid choice") {
				t.Errorf("expected message to mention invalid choice, got %q", msg)
			}
		})
	}

	msg, _ := errorBody(t, doRecommendRequest(router, recommendBody(t, map[string]any{"choice": "diet"})))
	if !strings.Contains(msg, "diet") {
		t.Errorf("expected message to name the choice, got %q", msg)
	}
	if goal.calls != 0 {
		t.Errorf("expected no predictions, got %d", goal.calls)
	}
}

// TestRecommend_InvalidInput verifies that each missing or wrongly typed
// field is reported by name.
func TestRecommend_InvalidInput(t *testing.T) {
	router, goal, _ := setupRecommendTest(t)

	cases := []struct {
		name      string
		overrides map[string]any
		wantMsg   string
	}{
		{"missing Age", map[string]any{"Age": nil}, "Age is required"},
		{"missing Gender", map[string]any{"Gender": nil}, "Gender is required"},
		{"missing Day", map[string]any{"Day": nil}, "Day is required"},
		{"string Age", map[string]any{"Age": "thirty"}, "Age must be a number"},
		{"fractional Week", map[string]any{"Week": 1.5}, "Week must be an integer"},
		{"numeric Goal", map[string]any{"Goal": 3}, "Goal must be a string"},
		{"zero height", map[string]any{"Height_cm": 0}, "Height_cm must be greater than 0"},
		{"negative weight", map[string]any{"Weight_kg": -70}, "Weight_kg must be greater than 0"},
		{"out-of-range BMI", map[string]any{"Height_cm": 1e-200, "Weight_kg": 1e200}, "Height_cm and Weight_kg give an out-of-range BMI"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, code := errorBody(t, doRecommendRequest(router, recommendBody(t, tc.overrides)))
			if code != string(errInvalidInput) {
				t.Errorf("expected code %s, got %s", errInvalidInput, code)
			}
			if msg != tc.wantMsg {
				t.Errorf("expected message %q, got %q", tc.wantMsg, msg)
			}
		})
	}
	if goal.calls != 0 {
		t.Errorf("expected no predictions, got %d", goal.calls)
	}
}

func TestRecommend_MalformedBody(t *testing.T) {
	router, _, _ := setupRecommendTest(t)

	for _, body := range []string{"", "{not json", `{"choice":"meal"`} {
		_, code := errorBody(t, doRecommendRequest(router, body))
		if code != string(errInvalidInput) {
			t.Errorf("body %q: expected code %s, got %s", body, errInvalidInput, code)
		}
	}
}

// TestRecommend_UnknownCategory verifies unseen category labels are rejected
// before any prediction is attempted.
func TestRecommend_UnknownCategory(t *testing.T) {
	router, goal, exercise := setupRecommendTest(t)

	for _, field := range []string{"Gender", "Workout_History", "Goal"} {
		t.Run(field, func(t *testing.T) {
			msg, code := errorBody(t, doRecommendRequest(router, recommendBody(t, map[string]any{field: "unknown"})))
			if code != string(errUnknownCategory) {
				t.Errorf("expected code %s, got %s", errUnknownCategory, code)
			}
			if !strings.Contains(msg, field) || !strings.Contains(msg, "unknown") {
				t.Errorf("expected message naming %s and the value, got %q", field, msg)
			}
		})
	}
	if goal.calls != 0 || exercise.calls != 0 {
		t.Errorf("expected no predictions, got goal=%d exercise=%d", goal.calls, exercise.calls)
	}
}

func TestRecommend_ModelFailure(t *testing.T) {
	router, goal, _ := setupRecommendTest(t)
	goal.err = errors.New("model expects 8 features, got 9")

	msg, code := errorBody(t, doRecommendRequest(router, recommendBody(t, nil)))
	if code != string(errInternalFailure) {
		t.Errorf("expected code %s, got %s", errInternalFailure, code)
	}
	if !strings.Contains(msg, "model expects 8 features") {
		t.Errorf("expected model error in message, got %q", msg)
	}
}

/* ─── Health ─────────────────────────────────────────────────────────── */

func TestHealth(t *testing.T) {
	router, _, _ := setupRecommendTest(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
		Rows   int    `json:"rows"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "ok" || resp.Rows != 2 {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

/* ─── CORS ───────────────────────────────────────────────────────────── */

// TestServerHandler_CORS verifies cross-origin requests are allowed from any
// origin, for both preflight and actual requests.
func TestServerHandler_CORS(t *testing.T) {
	h, _, _ := newTestHandler(t)
	gin.SetMode(gin.TestMode)
	srv := newServerHandler(h, gin.New())

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/recommend", nil)
		req.Header.Set("Origin", "http://client.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)

		if w.Code < 200 || w.Code >= 300 {
			t.Fatalf("expected 2xx preflight, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected Access-Control-Allow-Origin *, got %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPost) {
			t.Errorf("expected POST in Access-Control-Allow-Methods, got %q", got)
		}
	})

	t.Run("post", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(recommendBody(t, nil)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", "http://client.example")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected Access-Control-Allow-Origin *, got %q", got)
		}
		if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Request-Id") && !strings.Contains(got, "X-Request-ID") {
			t.Errorf("expected X-Request-ID to be exposed, got %q", got)
		}
	})
}
