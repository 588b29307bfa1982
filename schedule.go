package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// scheduleColumns are the CSV headers the table needs. Columns are matched by
// name, so their position in the file does not matter and extras are ignored.
var scheduleColumns = []string{
	"Week", "Day",
	"Breakfast", "Calories_Breakfast",
	"Snack_1", "Calories_Snack_1",
	"Lunch", "Calories_Lunch",
	"Snack_2", "Calories_Snack_2",
	"Dinner", "Calories_Dinner",
	"Exercise_Name", "Exercise_Description", "Exercise_Duration",
}

type scheduleKey struct {
	week, day int
}

// scheduleTable is the read-only (Week, Day) index built once at startup.
// It is never mutated after construction, so concurrent lookups need no lock.
type scheduleTable struct {
	rows map[scheduleKey]scheduleRow
}

// newScheduleTable indexes rows by (Week, Day). When a key repeats, the first
// row wins and later ones are logged and dropped.
func newScheduleTable(rows []scheduleRow) (*scheduleTable, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("schedule has no rows")
	}
	t := &scheduleTable{rows: make(map[scheduleKey]scheduleRow, len(rows))}
	for _, r := range rows {
		k := scheduleKey{r.Week, r.Day}
		if _, dup := t.rows[k]; dup {
			log.Printf("[schedule] duplicate row for week %d day %d ignored", r.Week, r.Day)
			continue
		}
		t.rows[k] = r
	}
	return t, nil
}

// lookup returns the row for exactly (week, day). ok=false is a normal miss,
// not an error.
func (t *scheduleTable) lookup(week, day int) (scheduleRow, bool) {
	r, ok := t.rows[scheduleKey{week, day}]
	return r, ok
}

func (t *scheduleTable) len() int {
	return len(t.rows)
}

/* ─── CSV source ─────────────────────────────────────────────────────── */

// loadScheduleCSV reads the schedule table from a CSV file.
func loadScheduleCSV(path string) (*scheduleTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schedule file: %w", err)
	}
	defer f.Close()

	rows, err := parseScheduleCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return newScheduleTable(rows)
}

// parseScheduleCSV parses schedule rows from CSV with a header line. Any
// missing column or non-numeric Week, Day, or calorie cell fails the whole parse.
func parseScheduleCSV(r io.Reader) ([]scheduleRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, seen := col[h]; !seen {
			col[h] = i
		}
	}
	for _, name := range scheduleColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var rows []scheduleRow
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		get := func(name string) string { return strings.TrimSpace(record[col[name]]) }

		week, err := parseWholeNumber(get("Week"))
		if err != nil {
			return nil, fmt.Errorf("line %d: Week: %w", line, err)
		}
		day, err := parseWholeNumber(get("Day"))
		if err != nil {
			return nil, fmt.Errorf("line %d: Day: %w", line, err)
		}

		row := scheduleRow{
			Week: week,
			Day:  day,
			Exercise: exerciseEntry{
				Name:        get("Exercise_Name"),
				Description: get("Exercise_Description"),
				Duration:    parseDuration(get("Exercise_Duration")),
			},
		}
		for i, slot := range mealSlots {
			cal, err := parseCalories(get("Calories_" + slot))
			if err != nil {
				return nil, fmt.Errorf("line %d: Calories_%s: %w", line, slot, err)
			}
			row.Meals[i] = meal{Meal: get(slot), Calories: cal}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

/* ─── Postgres source ────────────────────────────────────────────────── */

// loadScheduleDB reads the whole schedule_rows table once. The rows go through
// the same checks as the CSV source.
func loadScheduleDB(ctx context.Context, pool *pgxpool.Pool) (*scheduleTable, error) {
	dbRows, err := queryMany[scheduleDBRow](ctx, pool,
		"SELECT * FROM schedule_rows ORDER BY week, day", pgx.NamedArgs{})
	if err != nil {
		return nil, fmt.Errorf("querying schedule_rows: %w", err)
	}

	rows := make([]scheduleRow, 0, len(dbRows))
	for _, r := range dbRows {
		row, err := toScheduleRow(r)
		if err != nil {
			return nil, fmt.Errorf("week %d day %d: %w", r.Week, r.Day, err)
		}
		rows = append(rows, row)
	}
	return newScheduleTable(rows)
}

func toScheduleRow(r scheduleDBRow) (scheduleRow, error) {
	meals := [5]meal{
		{Meal: r.Breakfast, Calories: r.CaloriesBreakfast},
		{Meal: r.Snack1, Calories: r.CaloriesSnack1},
		{Meal: r.Lunch, Calories: r.CaloriesLunch},
		{Meal: r.Snack2, Calories: r.CaloriesSnack2},
		{Meal: r.Dinner, Calories: r.CaloriesDinner},
	}
	for i, m := range meals {
		if m.Calories < 0 {
			return scheduleRow{}, fmt.Errorf("Calories_%s is negative: %d", mealSlots[i], m.Calories)
		}
	}
	return scheduleRow{
		Week:  r.Week,
		Day:   r.Day,
		Meals: meals,
		Exercise: exerciseEntry{
			Name:        r.ExerciseName,
			Description: r.ExerciseDescription,
			Duration:    parseDuration(r.ExerciseDuration),
		},
	}, nil
}

/* ─── Cell parsing ───────────────────────────────────────────────────── */

// parseWholeNumber accepts "3" as well as "3.0", which spreadsheet exports
// often produce for integer columns.
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

func parseCalories(s string) (int, error) {
	n, err := parseWholeNumber(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative calories: %d", n)
	}
	return n, nil
}

// parseDuration keeps numeric durations numeric and everything else as text.
func parseDuration(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}
