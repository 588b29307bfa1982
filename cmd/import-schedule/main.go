// CLI tool to load a schedule CSV into the schedule_rows table.
// Replaces the table contents in a single transaction; the API reads the
// table once at startup when DB_URL is set.
// Usage: go run ./cmd/import-schedule [path/to/schedule.csv] (from the repo root)
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

// csvColumns maps each CSV header to its schedule_rows column, in table order.
var csvColumns = []struct {
	header  string
	column  string
	integer bool
}{
	{"Week", "week", true},
	{"Day", "day", true},
	{"Breakfast", "breakfast", false},
	{"Calories_Breakfast", "calories_breakfast", true},
	{"Snack_1", "snack_1", false},
	{"Calories_Snack_1", "calories_snack_1", true},
	{"Lunch", "lunch", false},
	{"Calories_Lunch", "calories_lunch", true},
	{"Snack_2", "snack_2", false},
	{"Calories_Snack_2", "calories_snack_2", true},
	{"Dinner", "dinner", false},
	{"Calories_Dinner", "calories_dinner", true},
	{"Exercise_Name", "exercise_name", false},
	{"Exercise_Description", "exercise_description", false},
	{"Exercise_Duration", "exercise_duration", false},
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	path := os.Getenv("SCHEDULE_CSV")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		path = "data/fitness_meal_plan_with_exercises.csv"
	}

	rows, err := readRows(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, os.Getenv("DB_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting transaction: %v\n", err)
		os.Exit(1)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM schedule_rows"); err != nil {
		tx.Rollback(ctx)
		fmt.Fprintf(os.Stderr, "Error clearing schedule_rows: %v\n", err)
		os.Exit(1)
	}

	columns := make([]string, len(csvColumns))
	for i, c := range csvColumns {
		columns[i] = c.column
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"schedule_rows"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		tx.Rollback(ctx)
		fmt.Fprintf(os.Stderr, "Error copying rows: %v\n", err)
		os.Exit(1)
	}

	if err := tx.Commit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error committing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d schedule row(s) imported from %s.\n", n, path)
}

// readRows reads the CSV into table-ordered values. Integer columns are
// parsed here so a bad cell names its line instead of failing inside COPY.
func readRows(path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range csvColumns {
		if _, ok := idx[c.header]; !ok {
			return nil, fmt.Errorf("missing column %q", c.header)
		}
	}

	var rows [][]any
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}

		row := make([]any, len(csvColumns))
		for i, c := range csvColumns {
			cell := strings.TrimSpace(record[idx[c.header]])
			if !c.integer {
				row[i] = cell
				continue
			}
			v, err := parseWholeNumber(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s is not an integer: %q", line, c.header, cell)
			}
			if v < 0 && strings.HasPrefix(c.header, "Calories_") {
				return nil, fmt.Errorf("line %d: %s is negative: %d", line, c.header, v)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// parseWholeNumber accepts "3" as well as "3.0", the same cells the API
// accepts when it reads the CSV directly.
func parseWholeNumber(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}
