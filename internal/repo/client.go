package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/cache"
	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/utils"
)

// ClientConfig configures the HTTP evidence client.
type ClientConfig struct {
	BaseURL       string
	IncidentsPath string
	PolicyPath    string
	InfraPath     string
	IntelPath     string
	Timeout       time.Duration
	IncidentsTTL  time.Duration
	PolicyTTL     time.Duration
}

// Client queries a remote evidence service over HTTP. Incident and policy
// lookups are read-through cached; infra and intel lookups change too often
// to cache.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	cache  cache.Provider
	logger *slog.Logger
}

// NewClient constructs a Client. A nil cache disables read-through caching.
func NewClient(cfg ClientConfig, cacheProvider cache.Provider, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.IncidentsTTL <= 0 {
		cfg.IncidentsTTL = 2 * time.Minute
	}
	if cfg.PolicyTTL <= 0 {
		cfg.PolicyTTL = 5 * time.Minute
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  cacheProvider,
		logger: logger,
	}
}

type incidentsRequest struct {
	Customer   string                `json:"customer"`
	Category   models.ThreatCategory `json:"category"`
	WindowDays int                   `json:"window_days"`
}

type incidentsResponse struct {
	Incidents []models.HistoricalIncident `json:"incidents"`
}

// SimilarIncidents fetches past incidents for the customer and category.
func (c *Client) SimilarIncidents(ctx context.Context, customer string, category models.ThreatCategory, window time.Duration) ([]models.HistoricalIncident, error) {
	key := fmt.Sprintf("evidence:incidents:%s:%s", customer, category)
	if data, err := c.cache.Get(ctx, key); err == nil {
		var cached incidentsResponse
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.Incidents, nil
		}
	}

	req := incidentsRequest{
		Customer:   customer,
		Category:   category,
		WindowDays: int(window.Hours() / 24),
	}
	var resp incidentsResponse
	if err := c.postJSON(ctx, c.cfg.IncidentsPath, req, &resp); err != nil {
		return nil, utils.NewAppError("repo.SimilarIncidents", "incident lookup failed", err)
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.cache.Set(ctx, key, data, c.cfg.IncidentsTTL); err != nil {
			c.logger.Debug("cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return resp.Incidents, nil
}

type policyRequest struct {
	Customer string `json:"customer"`
}

// CustomerPolicy fetches the customer's security policy.
func (c *Client) CustomerPolicy(ctx context.Context, customer string) (*models.CustomerPolicy, error) {
	key := "evidence:policy:" + customer
	if data, err := c.cache.Get(ctx, key); err == nil {
		var cached models.CustomerPolicy
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	var policy models.CustomerPolicy
	if err := c.postJSON(ctx, c.cfg.PolicyPath, policyRequest{Customer: customer}, &policy); err != nil {
		return nil, utils.NewAppError("repo.CustomerPolicy", "policy lookup failed", err)
	}

	if data, err := json.Marshal(policy); err == nil {
		if err := c.cache.Set(ctx, key, data, c.cfg.PolicyTTL); err != nil {
			c.logger.Debug("cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return &policy, nil
}

type infraRequest struct {
	Since time.Time `json:"since"`
}

type infraResponse struct {
	Events []models.InfraEvent `json:"events"`
}

// InfraEventsSince fetches infrastructure changes after the given time.
func (c *Client) InfraEventsSince(ctx context.Context, since time.Time) ([]models.InfraEvent, error) {
	var resp infraResponse
	if err := c.postJSON(ctx, c.cfg.InfraPath, infraRequest{Since: since}, &resp); err != nil {
		return nil, utils.NewAppError("repo.InfraEventsSince", "infra lookup failed", err)
	}
	return resp.Events, nil
}

type intelRequest struct {
	Category models.ThreatCategory `json:"category"`
	Keywords []string              `json:"keywords,omitempty"`
}

type intelResponse struct {
	Items []models.IntelItem `json:"items"`
}

// IntelItems fetches threat-intel items relevant to the category.
func (c *Client) IntelItems(ctx context.Context, category models.ThreatCategory, keywords []string) ([]models.IntelItem, error) {
	var resp intelResponse
	if err := c.postJSON(ctx, c.cfg.IntelPath, intelRequest{Category: category, Keywords: keywords}, &resp); err != nil {
		return nil, utils.NewAppError("repo.IntelItems", "intel lookup failed", err)
	}
	return resp.Items, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, path, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
