package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/infra"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/orchestrator"
)

// App is the handler container holding every collaborator the API surface
// needs.
type App struct {
	Jobs         domain.JobRepository
	Assets       domain.AssetRepository
	Businesses   domain.BusinessRepository
	Orchestrator *orchestrator.Orchestrator
	Logger       infra.Logger

	// SyncGeneration forces the submission handler to await the pipeline
	// inside the request instead of detaching it. Constrained hosts without
	// reliable background execution set this; the client-facing contract
	// (poll by id) is identical either way.
	SyncGeneration bool
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error":   errCode,
		"message": message,
	})
}
