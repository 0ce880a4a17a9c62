// Package config loads tracking parameters from a JSON file. Fields are
// pointers so a partial file overrides only what it names; everything else
// keeps the engine defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smartneedle/needletrack/internal/needle"
)

// TrackingConfig is the on-disk form of needle.SessionConfig. The schema
// doubles as the runtime parameter-update payload, so the same JSON works
// for startup configuration and live tuning.
type TrackingConfig struct {
	AdjacencyDistance   *int     `json:"adjacency_distance,omitempty"`
	MinTipSize          *int     `json:"min_tip_size,omitempty"`
	MinShaftSize        *int     `json:"min_shaft_size,omitempty"`
	GapClosingExtent    *int     `json:"gap_closing_extent,omitempty"`
	ConfidenceThreshold *int     `json:"confidence_threshold,omitempty"`
	SmoothingMethod     *string  `json:"smoothing_method,omitempty"` // "", "EMA" or "Kalman"
	EMAAlpha            *float64 `json:"ema_alpha,omitempty"`
	KalmanProcessNoise  *float64 `json:"kalman_process_noise,omitempty"`
	KalmanMeasNoise     *float64 `json:"kalman_measurement_noise,omitempty"`
	UpdateScanPlanes    *bool    `json:"update_scan_planes,omitempty"`
	ScanPlaneMode       *string  `json:"scan_plane_mode,omitempty"` // "slice-only" or "full-recenter"
	ActivePlanes        []string `json:"active_planes,omitempty"`
}

// LoadTrackingConfig loads a TrackingConfig from a JSON file. Omitted fields
// retain the engine defaults, so partial configs are safe.
func LoadTrackingConfig(path string) (*TrackingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TrackingConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return cfg, nil
}

// SessionConfig merges the file values over the engine defaults and returns
// the resulting session configuration. Validation happens at session start,
// which is where configuration errors must surface.
func (c *TrackingConfig) SessionConfig() needle.SessionConfig {
	out := needle.DefaultSessionConfig()
	if c == nil {
		return out
	}
	if c.AdjacencyDistance != nil {
		out.AdjacencyDistance = *c.AdjacencyDistance
	}
	if c.MinTipSize != nil {
		out.MinTipSize = *c.MinTipSize
	}
	if c.MinShaftSize != nil {
		out.MinShaftSize = *c.MinShaftSize
	}
	if c.GapClosingExtent != nil {
		out.GapClosingExtent = *c.GapClosingExtent
	}
	if c.ConfidenceThreshold != nil {
		out.ConfidenceThreshold = needle.ConfidenceLevel(*c.ConfidenceThreshold)
	}
	if c.SmoothingMethod != nil {
		out.Smoothing = needle.SmoothingMethod(*c.SmoothingMethod)
	}
	if c.EMAAlpha != nil {
		out.EMAAlpha = *c.EMAAlpha
	}
	if c.KalmanProcessNoise != nil {
		out.KalmanQ = *c.KalmanProcessNoise
	}
	if c.KalmanMeasNoise != nil {
		out.KalmanR = *c.KalmanMeasNoise
	}
	if c.UpdateScanPlanes != nil {
		out.UpdateScanPlanes = *c.UpdateScanPlanes
	}
	if c.ScanPlaneMode != nil {
		out.ScanPlaneMode = needle.ScanPlaneMode(*c.ScanPlaneMode)
	}
	if len(c.ActivePlanes) > 0 {
		planes := make([]needle.Plane, len(c.ActivePlanes))
		for i, p := range c.ActivePlanes {
			planes[i] = needle.Plane(p)
		}
		out.ActivePlanes = planes
	}
	return out
}
