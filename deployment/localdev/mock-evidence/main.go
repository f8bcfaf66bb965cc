// Standalone mock of the evidence service for local development. Serves the
// four lookup endpoints from the seeded in-memory dataset so the engine can
// be pointed at a real HTTP collaborator.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
	"github.com/sentinelsoc/triage-engine/internal/utils"
)

func main() {
	addr := flag.String("addr", ":9080", "listen address")
	seed := flag.Int64("seed", 1, "dataset seed")
	flag.Parse()

	logger := utils.NewLogger("info", false)
	evidence := repo.NewMemoryEvidence(*seed, time.Now().UTC())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/evidence/incidents", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Customer   string                `json:"customer"`
			Category   models.ThreatCategory `json:"category"`
			WindowDays int                   `json:"window_days"`
		}
		if !decode(w, r, &req) {
			return
		}
		incidents, _ := evidence.SimilarIncidents(r.Context(), req.Customer, req.Category, time.Duration(req.WindowDays)*24*time.Hour)
		respond(w, map[string]any{"incidents": incidents})
	})
	mux.HandleFunc("POST /api/v1/evidence/policy", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Customer string `json:"customer"`
		}
		if !decode(w, r, &req) {
			return
		}
		policy, _ := evidence.CustomerPolicy(r.Context(), req.Customer)
		respond(w, policy)
	})
	mux.HandleFunc("POST /api/v1/evidence/infra", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Since time.Time `json:"since"`
		}
		if !decode(w, r, &req) {
			return
		}
		events, _ := evidence.InfraEventsSince(r.Context(), req.Since)
		respond(w, map[string]any{"events": events})
	})
	mux.HandleFunc("POST /api/v1/evidence/intel", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Category models.ThreatCategory `json:"category"`
			Keywords []string              `json:"keywords"`
		}
		if !decode(w, r, &req) {
			return
		}
		items, _ := evidence.IntelItems(r.Context(), req.Category, req.Keywords)
		respond(w, map[string]any{"items": items})
	})

	logger.Info("mock evidence service listening", slog.String("addr", *addr), slog.Int64("seed", *seed))
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
