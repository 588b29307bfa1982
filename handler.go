package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
)

// Handler holds the read-only state shared by all route handlers. It is built
// once at startup and never modified afterwards.
type Handler struct {
	schedule         *scheduleTable
	encoder          *categoryEncoder
	features         featureTransformer
	goalModel        classifier
	exerciseModel    classifier
	debugPredictions bool
}

// newHandler loads every artifact the service needs. Any error here is fatal:
// the server must not start with a partial or invalid state.
func newHandler(ctx context.Context, cfg config) (*Handler, error) {
	enc, scaler, err := loadEncoders(cfg.EncodersPath)
	if err != nil {
		return nil, fmt.Errorf("loading encoders: %w", err)
	}
	goalModel, err := loadClassifier(cfg.GoalModelPath)
	if err != nil {
		return nil, fmt.Errorf("loading goal model: %w", err)
	}
	exerciseModel, err := loadClassifier(cfg.ExerciseModelPath)
	if err != nil {
		return nil, fmt.Errorf("loading exercise model: %w", err)
	}

	var schedule *scheduleTable
	if cfg.DBURL != "" {
		pool, err := getDBPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		// The table is read exactly once, so the pool is not kept around.
		defer pool.Close()
		schedule, err = loadScheduleDB(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("loading schedule from database: %w", err)
		}
	} else {
		schedule, err = loadScheduleCSV(cfg.ScheduleCSV)
		if err != nil {
			return nil, fmt.Errorf("loading schedule: %w", err)
		}
	}
	fmt.Printf("Schedule ready: %d rows\n", schedule.len())

	return &Handler{
		schedule:         schedule,
		encoder:          enc,
		features:         scaler,
		goalModel:        goalModel,
		exerciseModel:    exerciseModel,
		debugPredictions: cfg.DebugPredictions,
	}, nil
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		log.Printf("[queryMany] Query error: %v", err)
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Printf("[queryMany] Scan error: %v", err)
	}
	return results, err
}

// getDBPool connects to the schedule database.
func getDBPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parsing DB URL: %w", err)
	}
	// Simple protocol avoids cached-plan errors after the table is migrated.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	fmt.Println("DB pool ready!")
	return pool, nil
}

/* ─── Responses & middleware ─────────────────────────────────────────── */

// apiError writes a consistent JSON error response: {"error": "message", "code": "kind"}.
// Every request-level failure maps to 400; errors outside the taxonomy are
// reported as internal failures.
func apiError(c *gin.Context, err error) {
	var reqErr *requestError
	if !errors.As(err, &reqErr) {
		reqErr = internalFailure(err).(*requestError)
	}
	if reqErr.Kind == errInternalFailure {
		log.Printf("[%s] request %s: %v", c.FullPath(), c.GetString("request_id"), err)
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": reqErr.Message, "code": reqErr.Kind})
}

// requestID tags every request with an id, reusing the client's X-Request-ID
// when one is sent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// health reports readiness. The handler only exists once startup succeeded.
// GET /health.
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "rows": h.schedule.len()})
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	registerFieldNames()

	router.Use(requestID())
	router.GET("/health", h.health)
	router.POST("/recommend", h.recommend)
}

// newServerHandler registers the routes on router and wraps it with CORS.
// The service is called from a separate client app, so any origin is allowed.
func newServerHandler(h *Handler, router *gin.Engine) http.Handler {
	h.registerRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
	})
	return c.Handler(router)
}
