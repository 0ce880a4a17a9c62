package needle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartneedle/needletrack/internal/monitoring"
)

// SessionConfig holds the tracking parameters fixed for the lifetime of a
// session. Validate runs before any cycle; a bad value means the session
// never starts.
type SessionConfig struct {
	// AdjacencyDistance is the tip/shaft adjacency test radius in voxels.
	AdjacencyDistance int
	// MinTipSize and MinShaftSize are the component size gates (voxels).
	MinTipSize   int
	MinShaftSize int
	// GapClosingExtent is the morphological closing radius (voxels) applied
	// to the shaft mask along the in-plane axis orthogonal to the needle.
	GapClosingExtent int
	// ConfidenceThreshold gates updates to the tracked position (1-5).
	ConfidenceThreshold ConfidenceLevel
	// Smoothing selects the temporal filter; EMAAlpha, KalmanQ and KalmanR
	// parameterize it.
	Smoothing SmoothingMethod
	EMAAlpha  float64
	KalmanQ   float64
	KalmanR   float64
	// UpdateScanPlanes enables the scan-plane coordinator; ScanPlaneMode
	// selects slice-only vs full re-center prescription.
	UpdateScanPlanes bool
	ScanPlaneMode    ScanPlaneMode
	// ActivePlanes is the subset of planes acquired this session.
	ActivePlanes []Plane
}

// DefaultSessionConfig returns the default tracking parameters.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AdjacencyDistance:   3,
		MinTipSize:          10,
		MinShaftSize:        30,
		GapClosingExtent:    3,
		ConfidenceThreshold: ConfidenceMedium,
		Smoothing:           SmoothingNone,
		EMAAlpha:            0.5,
		KalmanQ:             0.02,
		KalmanR:             1.0,
		UpdateScanPlanes:    true,
		ScanPlaneMode:       ModeSliceOnly,
		ActivePlanes:        []Plane{PlaneCOR, PlaneSAG, PlaneAX},
	}
}

// Validate checks all parameters. Every failure is a ConfigurationError.
func (c SessionConfig) Validate() error {
	if c.AdjacencyDistance < 1 {
		return &ConfigurationError{Param: "AdjacencyDistance", Reason: "must be >= 1 voxel"}
	}
	if c.MinTipSize < 1 {
		return &ConfigurationError{Param: "MinTipSize", Reason: "must be >= 1 voxel"}
	}
	if c.MinShaftSize < 1 {
		return &ConfigurationError{Param: "MinShaftSize", Reason: "must be >= 1 voxel"}
	}
	if c.GapClosingExtent < 0 {
		return &ConfigurationError{Param: "GapClosingExtent", Reason: "must be >= 0"}
	}
	if c.ConfidenceThreshold < ConfidenceLow || c.ConfidenceThreshold > ConfidenceHigh {
		return &ConfigurationError{Param: "ConfidenceThreshold", Reason: "must be between 1 and 5"}
	}
	if !c.Smoothing.Valid() {
		return &ConfigurationError{Param: "Smoothing", Reason: fmt.Sprintf("unknown method %q", string(c.Smoothing))}
	}
	if c.Smoothing == SmoothingEMA && (c.EMAAlpha <= 0 || c.EMAAlpha > 1) {
		return &ConfigurationError{Param: "EMAAlpha", Reason: "must be in (0, 1]"}
	}
	if c.Smoothing == SmoothingKalman {
		if c.KalmanQ <= 0 {
			return &ConfigurationError{Param: "KalmanQ", Reason: "must be > 0"}
		}
		if c.KalmanR <= 0 {
			return &ConfigurationError{Param: "KalmanR", Reason: "must be > 0"}
		}
	}
	if c.UpdateScanPlanes && !c.ScanPlaneMode.Valid() {
		return &ConfigurationError{Param: "ScanPlaneMode", Reason: fmt.Sprintf("unknown mode %q", string(c.ScanPlaneMode))}
	}
	if len(c.ActivePlanes) == 0 {
		return &ConfigurationError{Param: "ActivePlanes", Reason: "at least one plane required"}
	}
	seen := map[Plane]bool{}
	for _, p := range c.ActivePlanes {
		if !p.Valid() {
			return &ConfigurationError{Param: "ActivePlanes", Reason: fmt.Sprintf("unknown plane %q", string(p))}
		}
		if seen[p] {
			return &ConfigurationError{Param: "ActivePlanes", Reason: fmt.Sprintf("plane %s listed twice", p)}
		}
		seen[p] = true
	}
	return nil
}

// Segmenter produces a label volume from the raw per-plane scanner images.
// The inference stack behind it is outside this engine.
type Segmenter interface {
	Segment(ctx context.Context, plane Plane, images []interface{}) (*LabelVolume, error)
}

// Transport publishes tracking outputs to the scanner/robot side. The wire
// protocol is the host's concern.
type Transport interface {
	PublishTip(position [3]float64, confidence ConfidenceLevel) error
	PublishPlanePose(pose PlanePose) error
	PublishConfidence(confidence ConfidenceLevel) error
}

// Recorder persists per-session and per-cycle tracking results.
type Recorder interface {
	StartSession(sessionID string, cfg SessionConfig, start time.Time) error
	RecordCycle(sessionID string, res *CycleResult, at time.Time) error
	EndSession(sessionID string, end time.Time, totalCycles int) error
}

// CycleResult is the outcome of one tracking cycle. When Updated is false
// the tracked position is bit-identical to its value before the call.
type CycleResult struct {
	Cycle      int
	Plane      Plane
	Confidence ConfidenceLevel
	// RawRAS is the classifier's point in the world frame, nil when there
	// was no detection.
	RawRAS *[3]float64
	// Tracked is the fused position before smoothing, Smoothed after.
	Tracked  [3]float64
	Smoothed [3]float64
	Updated  bool
	// UpdatedPoses holds the re-prescribed poses of the other active planes
	// (empty unless Updated and scan-plane updates are enabled).
	UpdatedPoses map[Plane]PlanePose
}

// Session owns all mutable tracking state and runs the pipeline one cycle at
// a time. All shared state is confined behind its mutex; cycles never
// overlap.
type Session struct {
	ID  string
	cfg SessionConfig

	segmenter Segmenter
	transport Transport
	recorder  Recorder
	timer     *StepTimer

	mu        sync.Mutex
	tip       TrackedTipState
	smoother  Smoother
	poses     PlanePoseSet
	cycle     int
	lastConf  ConfidenceLevel
	confCount [int(ConfidenceHigh) + 1]int
	started   time.Time
	stopped   bool
}

// SessionOption injects an optional collaborator at construction.
type SessionOption func(*Session)

// WithSegmenter attaches the segmentation collaborator used by HandleImages.
func WithSegmenter(seg Segmenter) SessionOption {
	return func(s *Session) { s.segmenter = seg }
}

// WithTransport attaches the output publisher.
func WithTransport(tr Transport) SessionOption {
	return func(s *Session) { s.transport = tr }
}

// WithRecorder attaches the persistence collaborator.
func WithRecorder(rec Recorder) SessionOption {
	return func(s *Session) { s.recorder = rec }
}

// NewSession validates the configuration and starts a tracking session. The
// tracked position starts at the origin, the smoother empty, and all active
// planes centered at the origin.
func NewSession(cfg SessionConfig, opts ...SessionOption) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		ID:      fmt.Sprintf("sess_%s", uuid.NewString()),
		cfg:     cfg,
		timer:   NewStepTimer(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tip.Reset()
	s.smoother = NewSmoother(cfg.Smoothing, cfg.EMAAlpha, cfg.KalmanQ, cfg.KalmanR)
	s.poses = NewPlanePoseSet(cfg.ActivePlanes)

	if s.recorder != nil {
		if err := s.recorder.StartSession(s.ID, cfg, s.started); err != nil {
			return nil, fmt.Errorf("start session recording: %w", err)
		}
	}
	monitoring.Logf("session %s: tracking started (threshold=%s smoothing=%s planes=%v)",
		s.ID, cfg.ConfidenceThreshold, methodName(cfg.Smoothing), cfg.ActivePlanes)
	return s, nil
}

func methodName(m SmoothingMethod) string {
	if m == SmoothingNone {
		return "none"
	}
	return string(m)
}

// Config returns a copy of the session configuration.
func (s *Session) Config() SessionConfig { return s.cfg }

// HandleImages runs the Segmenter on raw scanner images for one plane, then
// processes the resulting label volume.
func (s *Session) HandleImages(ctx context.Context, plane Plane, images []interface{}) (*CycleResult, error) {
	if s.segmenter == nil {
		return nil, fmt.Errorf("no segmenter attached to session")
	}
	vol, err := s.segmenter.Segment(ctx, plane, images)
	if err != nil {
		return nil, fmt.Errorf("segment %s image: %w", plane, err)
	}
	return s.Process(plane, vol)
}

// Process runs one full tracking cycle on a label volume from one plane:
// component extraction, candidate selection, confidence classification,
// multi-plane fusion, temporal smoothing and scan-plane coordination.
// Cycles are strictly serialized; the call returns only after all shared
// state has been updated. A malformed volume aborts just this cycle.
func (s *Session) Process(plane Plane, vol *LabelVolume) (*CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, fmt.Errorf("session %s already stopped", s.ID)
	}
	if !plane.Valid() {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("unknown plane %q", string(plane))}
	}
	if err := vol.Validate(); err != nil {
		return nil, err
	}

	s.timer.BeginCycle()
	s.timer.Mark(StepVolumeReceived)
	s.cycle++

	tipMask := vol.Mask(LabelTip)
	shaftMask := vol.Mask(LabelShaft).Close(0, s.cfg.GapClosingExtent, 0)

	tipLabels, tips := LabelComponents(tipMask)
	shaftLabels, shafts := LabelComponents(shaftMask)

	sel := SelectCandidates(tipLabels, tips, shaftLabels, shafts, SelectorParams{
		AdjacencyDistance: s.cfg.AdjacencyDistance,
		MinTipSize:        s.cfg.MinTipSize,
		MinShaftSize:      s.cfg.MinShaftSize,
	})
	conf, point := Classify(sel, ClassifierParams{
		MinTipSize:   s.cfg.MinTipSize,
		MinShaftSize: s.cfg.MinShaftSize,
	})
	s.timer.Mark(StepTipClassified)

	res := &CycleResult{
		Cycle:      s.cycle,
		Plane:      plane,
		Confidence: conf,
		Tracked:    s.tip.Position,
		Smoothed:   s.tip.Position,
	}
	s.lastConf = conf
	s.confCount[int(conf)]++

	if conf == ConfidenceNone || point == nil {
		monitoring.Logf("session %s cycle %d [%s]: no needle detected", s.ID, s.cycle, plane)
		s.timer.Mark(StepTipTracked)
		s.finishCycle(res)
		return res, nil
	}

	rawRAS := ImageToRAS(*point)
	res.RawRAS = &rawRAS

	if conf < s.cfg.ConfidenceThreshold {
		monitoring.Logf("session %s cycle %d [%s]: tip at [%.2f %.2f %.2f] confidence %s below threshold, tracked tip not updated",
			s.ID, s.cycle, plane, rawRAS[0], rawRAS[1], rawRAS[2], conf)
		s.timer.Mark(StepTipTracked)
		s.finishCycle(res)
		return res, nil
	}

	centerRAS := ImageToRAS(vol.Center())
	proposed := s.tip.Fuse(plane, rawRAS, centerRAS, vol.SliceThickness())
	smoothed := proposed
	if s.smoother != nil {
		smoothed = s.smoother.Smooth(proposed, time.Now())
	}
	s.tip.Position = smoothed
	res.Tracked = proposed
	res.Smoothed = smoothed
	res.Updated = true
	s.timer.Mark(StepTipTracked)

	if s.cfg.UpdateScanPlanes {
		updated := s.poses.UpdateForTip(smoothed, plane, s.cfg.ScanPlaneMode)
		res.UpdatedPoses = make(map[Plane]PlanePose, len(updated))
		for _, p := range updated {
			res.UpdatedPoses[p] = *s.poses[p]
		}
	}
	s.timer.Mark(StepPlanesUpdated)

	if s.transport != nil {
		if err := s.transport.PublishTip(smoothed, conf); err != nil {
			monitoring.Logf("session %s: publish tip: %v", s.ID, err)
		}
		for _, pose := range res.UpdatedPoses {
			if err := s.transport.PublishPlanePose(pose); err != nil {
				monitoring.Logf("session %s: publish plane pose %s: %v", s.ID, pose.Plane, err)
			}
		}
	}

	s.finishCycle(res)
	return res, nil
}

// finishCycle publishes the confidence grade and records the cycle. Both are
// best-effort: failures are logged, never propagated.
func (s *Session) finishCycle(res *CycleResult) {
	if s.transport != nil {
		if err := s.transport.PublishConfidence(res.Confidence); err != nil {
			monitoring.Logf("session %s: publish confidence: %v", s.ID, err)
		}
	}
	if s.recorder != nil {
		if err := s.recorder.RecordCycle(s.ID, res, time.Now()); err != nil {
			monitoring.Logf("session %s: record cycle %d: %v", s.ID, res.Cycle, err)
		}
	}
}

// TipPosition returns the current tracked position.
func (s *Session) TipPosition() [3]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tip.Position
}

// PlanePoses returns a snapshot of the active plane poses.
func (s *Session) PlanePoses() map[Plane]PlanePose {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Plane]PlanePose, len(s.poses))
	for p, pose := range s.poses {
		out[p] = *pose
	}
	return out
}

// SessionStatus is a point-in-time snapshot for monitoring.
type SessionStatus struct {
	ID               string               `json:"session_id"`
	Started          time.Time            `json:"started"`
	Cycles           int                  `json:"cycles"`
	LastConfidence   string               `json:"last_confidence"`
	ConfidenceCounts map[string]int       `json:"confidence_counts"`
	Position         [3]float64           `json:"position_ras"`
	Planes           map[Plane][3]float64 `json:"plane_translations"`
	Stopped          bool                 `json:"stopped"`
}

// Status returns a monitoring snapshot of the session.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for level, n := range s.confCount {
		if n > 0 {
			counts[ConfidenceLevel(level).Label()] = n
		}
	}
	planes := make(map[Plane][3]float64, len(s.poses))
	for p, pose := range s.poses {
		planes[p] = pose.Translation
	}
	return SessionStatus{
		ID:               s.ID,
		Started:          s.started,
		Cycles:           s.cycle,
		LastConfidence:   s.lastConf.Label(),
		ConfidenceCounts: counts,
		Position:         s.tip.Position,
		Planes:           planes,
		Stopped:          s.stopped,
	}
}

// Stop ends the session: reports stage timings, finalizes the recording and
// discards all tracking state. A second Stop is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true

	s.timer.ReportPairs([][2]string{
		{StepVolumeReceived, StepTipClassified},
		{StepTipClassified, StepTipTracked},
		{StepTipTracked, StepPlanesUpdated},
	})
	s.timer.Clear()

	if s.recorder != nil {
		if err := s.recorder.EndSession(s.ID, time.Now(), s.cycle); err != nil {
			monitoring.Logf("session %s: finalize recording: %v", s.ID, err)
		}
	}

	s.tip.Reset()
	if s.smoother != nil {
		s.smoother.Reset()
	}
	s.poses = NewPlanePoseSet(s.cfg.ActivePlanes)
	monitoring.Logf("session %s: tracking stopped after %d cycles", s.ID, s.cycle)
}

// CycleInput is one inbound tracking event: a freshly segmented label volume
// for a single plane.
type CycleInput struct {
	Plane  Plane
	Volume *LabelVolume
}

// Run drains label volumes from in, processing them strictly in arrival
// order until the channel closes or the context is cancelled. Malformed
// inputs abort their cycle only. The session is stopped on return.
func (s *Session) Run(ctx context.Context, in <-chan CycleInput) {
	defer s.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case input, ok := <-in:
			if !ok {
				return
			}
			if _, err := s.Process(input.Plane, input.Volume); err != nil {
				monitoring.Logf("session %s: cycle aborted: %v", s.ID, err)
			}
		}
	}
}
