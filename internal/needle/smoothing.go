package needle

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/smartneedle/needletrack/internal/monitoring"
)

// SmoothingMethod selects the temporal filter applied to fused positions.
// The choice is fixed at session start; it is not hot-swappable mid-session.
type SmoothingMethod string

const (
	SmoothingNone   SmoothingMethod = ""
	SmoothingEMA    SmoothingMethod = "EMA"
	SmoothingKalman SmoothingMethod = "Kalman"
)

// Valid reports whether m names a supported smoothing method.
func (m SmoothingMethod) Valid() bool {
	return m == SmoothingNone || m == SmoothingEMA || m == SmoothingKalman
}

// Smoother filters the fused tip position over time. Only points that passed
// the fusion confidence gate reach the smoother.
type Smoother interface {
	// Smooth consumes one fused measurement and returns the filtered
	// position. now provides the wall-clock timestamp for dt computation.
	Smooth(measurement [3]float64, now time.Time) [3]float64
	// Reset discards all filter state at session stop.
	Reset()
}

// EMASmoother is a first-order low-pass: state = alpha*z + (1-alpha)*state.
// The first measurement initializes the state directly.
type EMASmoother struct {
	Alpha float64

	pos         [3]float64
	initialized bool
}

// NewEMASmoother returns an EMA filter with gain alpha in (0,1].
func NewEMASmoother(alpha float64) *EMASmoother {
	return &EMASmoother{Alpha: alpha}
}

func (e *EMASmoother) Smooth(z [3]float64, _ time.Time) [3]float64 {
	if !e.initialized {
		e.pos = z
		e.initialized = true
		return e.pos
	}
	for i := 0; i < 3; i++ {
		e.pos[i] = e.Alpha*z[i] + (1-e.Alpha)*e.pos[i]
	}
	return e.pos
}

func (e *EMASmoother) Reset() {
	e.pos = [3]float64{}
	e.initialized = false
}

// KalmanSmoother is a constant-velocity Kalman filter over state
// [x y z vx vy vz] with position-only measurements. Process noise follows
// the discretized white-noise-acceleration model, block-diagonal per axis.
type KalmanSmoother struct {
	// Q scales process noise, R is the measurement noise variance.
	Q float64
	R float64

	x           *mat.VecDense // 6x1 state
	p           *mat.Dense    // 6x6 covariance
	last        time.Time
	initialized bool
}

// NewKalmanSmoother returns a constant-velocity Kalman filter with process
// noise q and measurement noise r (both > 0).
func NewKalmanSmoother(q, r float64) *KalmanSmoother {
	return &KalmanSmoother{Q: q, R: r}
}

func (k *KalmanSmoother) Smooth(z [3]float64, now time.Time) [3]float64 {
	if !k.initialized {
		k.init(z)
		k.last = now
		return z
	}

	dt := 0.0
	if !k.last.IsZero() && !now.IsZero() {
		dt = now.Sub(k.last).Seconds()
		if dt < 0 {
			dt = 0
		}
	}
	k.predict(dt)
	k.update(z)
	k.last = now
	return [3]float64{k.x.AtVec(0), k.x.AtVec(1), k.x.AtVec(2)}
}

func (k *KalmanSmoother) Reset() {
	k.x = nil
	k.p = nil
	k.last = time.Time{}
	k.initialized = false
}

// init starts the filter at the measured position with zero velocity and a
// fairly uncertain covariance.
func (k *KalmanSmoother) init(z [3]float64) {
	k.x = mat.NewVecDense(6, nil)
	for i := 0; i < 3; i++ {
		k.x.SetVec(i, z[i])
	}
	k.p = mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		k.p.Set(i, i, 10.0)
	}
	k.initialized = true
}

// transition builds F(dt) for the constant-velocity model.
func transition(dt float64) *mat.Dense {
	f := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		f.Set(i, i, 1)
	}
	for i := 0; i < 3; i++ {
		f.Set(i, i+3, dt)
	}
	return f
}

// processNoise builds Q(dt) from the white-noise-acceleration model:
// per axis [[dt^4/4, dt^3/2], [dt^3/2, dt^2]] scaled by q.
func processNoise(dt, q float64) *mat.Dense {
	q11 := dt * dt * dt * dt / 4.0 * q
	q12 := dt * dt * dt / 2.0 * q
	q22 := dt * dt * q
	m := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		m.Set(i, i, q11)
		m.Set(i, i+3, q12)
		m.Set(i+3, i, q12)
		m.Set(i+3, i+3, q22)
	}
	return m
}

// measurementModel builds H = [I3 | 03].
func measurementModel() *mat.Dense {
	h := mat.NewDense(3, 6, nil)
	for i := 0; i < 3; i++ {
		h.Set(i, i, 1)
	}
	return h
}

func (k *KalmanSmoother) predict(dt float64) {
	f := transition(dt)

	var x mat.VecDense
	x.MulVec(f, k.x)
	k.x.CopyVec(&x)

	var fp, fpft mat.Dense
	fp.Mul(f, k.p)
	fpft.Mul(&fp, f.T())
	fpft.Add(&fpft, processNoise(dt, k.Q))
	k.p.Copy(&fpft)
}

// update applies the measurement. A singular innovation covariance is a
// recoverable numeric failure: the update is skipped for this cycle and the
// predicted state retained.
func (k *KalmanSmoother) update(z [3]float64) {
	h := measurementModel()

	// Innovation y = z - H x.
	y := mat.NewVecDense(3, nil)
	y.MulVec(h, k.x)
	for i := 0; i < 3; i++ {
		y.SetVec(i, z[i]-y.AtVec(i))
	}

	// S = H P H^T + R.
	var hp, s mat.Dense
	hp.Mul(h, k.p)
	s.Mul(&hp, h.T())
	for i := 0; i < 3; i++ {
		s.Set(i, i, s.At(i, i)+k.R)
	}

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		monitoring.Logf("kalman: singular innovation covariance, skipping update: %v", err)
		return
	}

	// K = P H^T S^-1.
	var pht, gain mat.Dense
	pht.Mul(k.p, h.T())
	gain.Mul(&pht, &sInv)

	var dx mat.VecDense
	dx.MulVec(&gain, y)
	k.x.AddVec(k.x, &dx)

	// P = (I - K H) P.
	var kh mat.Dense
	kh.Mul(&gain, h)
	ikh := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		ikh.Set(i, i, 1)
	}
	ikh.Sub(ikh, &kh)
	var newP mat.Dense
	newP.Mul(ikh, k.p)
	k.p.Copy(&newP)
}

// NewSmoother builds the smoother selected by method, or nil for
// SmoothingNone.
func NewSmoother(method SmoothingMethod, alpha, q, r float64) Smoother {
	switch method {
	case SmoothingEMA:
		return NewEMASmoother(alpha)
	case SmoothingKalman:
		return NewKalmanSmoother(q, r)
	default:
		return nil
	}
}
