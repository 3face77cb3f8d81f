package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// MarkovAPI holds the dependencies for the model API handlers.
type MarkovAPI struct {
	config *Config
	reg    *ModelRegistry
	stats  *StatsStore
	logger *slog.Logger
}

// NewMarkovAPI creates a new instance of the MarkovAPI.
func NewMarkovAPI(config *Config, reg *ModelRegistry, stats *StatsStore, logger *slog.Logger) *MarkovAPI {
	return &MarkovAPI{
		config: config,
		reg:    reg,
		stats:  stats,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/models endpoints.
func (m *MarkovAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/models", m.handleListAndCreateModels)
	mux.HandleFunc("/api/models/", m.handleModelByName)
}

type CreateModelRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
	Text  string `json:"text"`
}

type GenerateRequest struct {
	Length int    `json:"length"`
	Prefix string `json:"prefix"`
}

type GenerateResponse struct {
	Sequence string `json:"sequence"`
	Length   int    `json:"length"`
	Fallback bool   `json:"fallback"`
}

type NextRequest struct {
	Prefix string `json:"prefix"`
}

type NextResponse struct {
	Token    string `json:"token"`
	Fallback bool   `json:"fallback"`
}

// handleListAndCreateModels handles GET for listing and POST for building models.
func (m *MarkovAPI) handleListAndCreateModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondWithJSON(w, http.StatusOK, m.reg.List())

	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, m.config.Server.MaxCorpusBytes)
		var req CreateModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Name == "" || req.Text == "" {
			respondWithError(w, http.StatusBadRequest, "Model name and corpus text are required")
			return
		}
		if req.Order == 0 {
			req.Order = m.config.Server.DefaultOrder
		}

		model, err := m.reg.Add(req.Name, req.Order, req.Text)
		if err != nil {
			m.logger.Error("Failed to build model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to build model: %v", err))
			return
		}
		m.logger.Info("Model built",
			"name", model.Name,
			"order", model.Order,
			"states", model.Info().States.States,
		)
		respondWithJSON(w, http.StatusCreated, model.Info())

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleModelByName routes actions for a specific model: info, delete,
// generate, next.
func (m *MarkovAPI) handleModelByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/models/")
	parts := strings.Split(path, "/")
	modelName := parts[0]

	if modelName == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}

	model, ok := m.reg.Get(modelName)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Model not found")
		return
	}

	if len(parts) == 1 { // Path is just /api/models/{name}
		switch r.Method {
		case http.MethodGet:
			respondWithJSON(w, http.StatusOK, model.Info())
		case http.MethodDelete:
			m.reg.Remove(modelName)
			m.logger.Info("Model removed", "name", modelName)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "generate":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Length <= 0 {
			respondWithError(w, http.StatusBadRequest, "A positive length is required")
			return
		}
		if req.Length > m.config.Server.MaxSequenceLength {
			req.Length = m.config.Server.MaxSequenceLength
		}

		sequence, fallback, err := model.Generate(req.Length, req.Prefix)
		if err != nil {
			m.logger.Error("Generation failed", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Generation failed: %v", err))
			return
		}
		tokenCount := len(strings.Split(sequence, " "))
		if err := m.stats.LogGeneration(r.Context(), modelName, tokenCount); err != nil {
			m.logger.Warn("Failed to record generation stats", "name", modelName, "error", err)
		}
		respondWithJSON(w, http.StatusOK, GenerateResponse{
			Sequence: sequence,
			Length:   tokenCount,
			Fallback: fallback,
		})

	case "next":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req NextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}

		token, fallback, err := model.Next(req.Prefix)
		if err != nil {
			m.logger.Error("Next-token sampling failed", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Sampling failed: %v", err))
			return
		}
		if err := m.stats.LogGeneration(r.Context(), modelName, 1); err != nil {
			m.logger.Warn("Failed to record generation stats", "name", modelName, "error", err)
		}
		respondWithJSON(w, http.StatusOK, NextResponse{Token: token, Fallback: fallback})

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}
