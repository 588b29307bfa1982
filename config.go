package main

import (
	"os"
	"strconv"
)

// config is read once from the environment (and an optional .env file).
type config struct {
	Port              string
	ScheduleCSV       string
	DBURL             string
	EncodersPath      string
	GoalModelPath     string
	ExerciseModelPath string
	DebugPredictions  bool
}

func loadConfig() config {
	debug, _ := strconv.ParseBool(os.Getenv("DEBUG_PREDICTIONS"))
	return config{
		Port:              envOr("PORT", "5000"),
		ScheduleCSV:       envOr("SCHEDULE_CSV", "data/fitness_meal_plan_with_exercises.csv"),
		DBURL:             os.Getenv("DB_URL"),
		EncodersPath:      envOr("ENCODERS_PATH", "data/encoders.json"),
		GoalModelPath:     envOr("GOAL_MODEL_PATH", "data/goal_classifier.json"),
		ExerciseModelPath: envOr("EXERCISE_MODEL_PATH", "data/exercise_classifier.json"),
		DebugPredictions:  debug,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
