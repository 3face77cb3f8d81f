package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServerAPI() *ServerAPI {
	config := &Config{Server: DefaultServerConfig()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServerAPI(config, make(chan string, 1), logger)
}

func TestHandleConfigGet(t *testing.T) {
	api := newTestServerAPI()

	rec := httptest.NewRecorder()
	api.handleConfig(rec, httptest.NewRequest(http.MethodGet, "/api/server/config", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET config status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"api_addr"`) {
		t.Errorf("GET config body missing server fields: %s", rec.Body.String())
	}
}

func TestHandleConfigPutRejectsMissingServerConfig(t *testing.T) {
	api := newTestServerAPI()

	for _, body := range []string{"{}", `{"server_config": null}`, "not json"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/server/config", strings.NewReader(body))
		api.handleConfig(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("PUT config with body %q status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}

	// The live config must survive rejected updates untouched.
	if api.config.Server == nil {
		t.Fatal("live server config was nilled by a rejected update")
	}
}
