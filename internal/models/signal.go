package models

import (
	"fmt"
	"time"
)

// ThreatCategory enumerates the signal categories produced by detection.
type ThreatCategory string

const (
	CategoryBotTraffic         ThreatCategory = "bot_traffic"
	CategoryCredentialStuffing ThreatCategory = "credential_stuffing"
	CategoryProxyNetwork       ThreatCategory = "proxy_network"
	CategoryDeviceCompromise   ThreatCategory = "device_compromise"
	CategoryAnomalyDetection   ThreatCategory = "anomaly_detection"
	CategoryRateLimitBreach    ThreatCategory = "rate_limit_breach"
	CategoryGeoAnomaly         ThreatCategory = "geo_anomaly"
)

// Categories lists every known threat category in a fixed order.
func Categories() []ThreatCategory {
	return []ThreatCategory{
		CategoryBotTraffic,
		CategoryCredentialStuffing,
		CategoryProxyNetwork,
		CategoryDeviceCompromise,
		CategoryAnomalyDetection,
		CategoryRateLimitBreach,
		CategoryGeoAnomaly,
	}
}

// Valid reports whether the category is one of the known values.
func (c ThreatCategory) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Severity captures impact levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for comparison; higher means more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// ThreatSignal is one reported security event requiring analysis. It is
// created once per incoming event and never mutated.
type ThreatSignal struct {
	ID           string         `json:"id"`
	Category     ThreatCategory `json:"category"`
	Customer     string         `json:"customer"`
	SourceIP     string         `json:"source_ip"`
	ClientID     string         `json:"client_id,omitempty"`
	RequestCount int            `json:"request_count"`
	Window       time.Duration  `json:"window"`
	DetectedAt   time.Time      `json:"detected_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Validate rejects malformed signals before any analysis work is performed.
func (s ThreatSignal) Validate() error {
	if !s.Category.Valid() {
		return fmt.Errorf("unknown threat category %q", s.Category)
	}
	if s.Customer == "" {
		return fmt.Errorf("customer is required")
	}
	if s.RequestCount < 0 {
		return fmt.Errorf("request count %d out of range", s.RequestCount)
	}
	if s.Window <= 0 {
		return fmt.Errorf("observation window must be positive")
	}
	if s.DetectedAt.IsZero() {
		return fmt.Errorf("detection timestamp is required")
	}
	return nil
}

// RequestsPerMinute derives the observed request rate over the signal window.
func (s ThreatSignal) RequestsPerMinute() float64 {
	minutes := s.Window.Minutes()
	if minutes < 1 {
		minutes = 1
	}
	return float64(s.RequestCount) / minutes
}
