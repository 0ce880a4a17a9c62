// Package transport publishes tracking outputs to the scanner host over
// HTTP. The host side decides what to do with them; this side only delivers.
package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/smartneedle/needletrack/internal/httputil"
	"github.com/smartneedle/needletrack/internal/needle"
)

// HTTPTransport implements needle.Transport by POSTing JSON payloads to the
// host's tracking endpoints under a common base URL.
type HTTPTransport struct {
	baseURL string
	client  httputil.HTTPClient
}

// NewHTTPTransport returns a transport posting to baseURL. A nil client uses
// http.DefaultClient.
func NewHTTPTransport(baseURL string, client httputil.HTTPClient) *HTTPTransport {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type tipPayload struct {
	PositionRAS    [3]float64 `json:"position_ras"`
	Confidence     int        `json:"confidence"`
	ConfidenceText string     `json:"confidence_text"`
}

type posePayload struct {
	Plane       string     `json:"plane"`
	Rotation    [9]float64 `json:"rotation"`
	Translation [3]float64 `json:"translation"`
}

type confidencePayload struct {
	Confidence     int    `json:"confidence"`
	ConfidenceText string `json:"confidence_text"`
}

// PublishTip posts the smoothed tip position and its confidence grade.
func (t *HTTPTransport) PublishTip(position [3]float64, confidence needle.ConfidenceLevel) error {
	return t.post("/tracking/tip", tipPayload{
		PositionRAS:    position,
		Confidence:     int(confidence),
		ConfidenceText: confidence.Label(),
	})
}

// PublishPlanePose posts a re-prescribed scan plane pose.
func (t *HTTPTransport) PublishPlanePose(pose needle.PlanePose) error {
	return t.post("/tracking/plane", posePayload{
		Plane:       string(pose.Plane),
		Rotation:    pose.Rotation,
		Translation: pose.Translation,
	})
}

// PublishConfidence posts the per-cycle confidence grade.
func (t *HTTPTransport) PublishConfidence(confidence needle.ConfidenceLevel) error {
	return t.post("/tracking/confidence", confidencePayload{
		Confidence:     int(confidence),
		ConfidenceText: confidence.Label(),
	})
}

func (t *HTTPTransport) post(path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}
	resp, err := t.client.Post(t.baseURL+path, "application/json", strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("post %s: host returned %d", path, resp.StatusCode)
	}
	return nil
}
