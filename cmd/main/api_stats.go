package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const statsSchema = `
CREATE TABLE IF NOT EXISTS stats_model_usage (
    model_name       TEXT PRIMARY KEY,
    total_requests   INTEGER NOT NULL DEFAULT 1,
    tokens_generated INTEGER NOT NULL DEFAULT 0,
    first_used       DATETIME NOT NULL,
    last_used        DATETIME NOT NULL
);
`

// ModelUsage is the usage record for a single model name.
type ModelUsage struct {
	ModelName       string    `json:"model_name"`
	TotalRequests   int64     `json:"total_requests"`
	TokensGenerated int64     `json:"tokens_generated"`
	FirstUsed       time.Time `json:"first_used"`
	LastUsed        time.Time `json:"last_used"`
}

// GlobalStatsSummary provides a high-level overview of all collected stats.
type GlobalStatsSummary struct {
	TotalRequests   int64 `json:"total_requests"`
	TokensGenerated int64 `json:"tokens_generated"`
	UniqueModels    int64 `json:"unique_models"`
}

// StatsStore records generation usage per model name in sqlite. Usage
// outlives the in-memory models, so totals survive restarts even though
// the models themselves do not.
type StatsStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func setupStatsSchema(db *sql.DB) error {
	_, err := db.Exec(statsSchema)
	return err
}

func NewStatsStore(db *sql.DB, logger *slog.Logger) *StatsStore {
	return &StatsStore{
		db:     db,
		logger: logger,
	}
}

// LogGeneration records one generation request against a model name,
// adding the number of tokens produced.
func (s *StatsStore) LogGeneration(ctx context.Context, model string, tokens int) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stats_model_usage (model_name, total_requests, tokens_generated, first_used, last_used)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(model_name) DO UPDATE SET
			total_requests = total_requests + 1,
			tokens_generated = tokens_generated + excluded.tokens_generated,
			last_used = excluded.last_used;`,
		model, tokens, now, now)
	if err != nil {
		return fmt.Errorf("could not record generation for model %q: %w", model, err)
	}
	return nil
}

// Summary returns aggregate usage across all model names.
func (s *StatsStore) Summary(ctx context.Context) (*GlobalStatsSummary, error) {
	var summary GlobalStatsSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT coalesce(SUM(total_requests), 0), coalesce(SUM(tokens_generated), 0), COUNT(*)
		FROM stats_model_usage;`).
		Scan(&summary.TotalRequests, &summary.TokensGenerated, &summary.UniqueModels)
	if err != nil {
		return nil, fmt.Errorf("could not query stats summary: %w", err)
	}
	return &summary, nil
}

// ModelUsages returns per-model usage ordered by request count.
func (s *StatsStore) ModelUsages(ctx context.Context) ([]ModelUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model_name, total_requests, tokens_generated, first_used, last_used
		FROM stats_model_usage ORDER BY total_requests DESC;`)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	usages := make([]ModelUsage, 0)
	for rows.Next() {
		var usage ModelUsage
		if err = rows.Scan(&usage.ModelName, &usage.TotalRequests, &usage.TokensGenerated, &usage.FirstUsed, &usage.LastUsed); err != nil {
			return nil, err
		}
		usages = append(usages, usage)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return usages, nil
}

// StatsAPI holds the dependencies for the statistics handlers.
type StatsAPI struct {
	store  *StatsStore
	logger *slog.Logger
}

func NewStatsAPI(store *StatsStore, logger *slog.Logger) *StatsAPI {
	return &StatsAPI{
		store:  store,
		logger: logger,
	}
}

func (s *StatsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats/summary", s.handleSummary)
	mux.HandleFunc("/api/stats/models", s.handleModels)
}

func (s *StatsAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		s.logger.Error("Failed to get stats summary", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve stats summary")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (s *StatsAPI) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	usages, err := s.store.ModelUsages(r.Context())
	if err != nil {
		s.logger.Error("Failed to get model usage stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve model usage stats")
		return
	}
	respondWithJSON(w, http.StatusOK, usages)
}
