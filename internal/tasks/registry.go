package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ezpbars/internal/shared"
)

const (
	// DefaultPbarName is the progress bar every simulated job belongs to.
	DefaultPbarName = "example"
	// DefaultTickInterval is how often watchers receive updates.
	DefaultTickInterval = 250 * time.Millisecond
	// minRuntimeShare bounds the sampled runtime below by this fraction of the estimate.
	minRuntimeShare = 0.1
	// MaxDuration caps requested durations.
	MaxDuration = time.Hour
)

// Registry holds the simulated jobs of a development server.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job

	rngMu sync.Mutex
	rng   *rand.Rand

	clock    shared.Clock
	interval time.Duration
	sub      string
	pbarName string
	logger   *log.Logger
}

// RegistryOption configures a [Registry].
type RegistryOption func(*Registry)

// WithRegistryClock replaces the wall clock.
func WithRegistryClock(c shared.Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

// WithSeed makes sampled runtimes reproducible.
func WithSeed(seed uint64) RegistryOption {
	return func(r *Registry) { r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithTickInterval sets how often watchers receive updates.
func WithTickInterval(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithSub sets the account identifier every job is created under.
func WithSub(sub string) RegistryOption {
	return func(r *Registry) { r.sub = sub }
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		jobs:     make(map[string]*Job),
		clock:    shared.RealClock{},
		interval: DefaultTickInterval,
		pbarName: DefaultPbarName,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if r.sub == "" {
		r.sub = shared.GenerateID()
	}
	if r.logger == nil {
		r.logger = shared.NewDiscardLogger()
	}
	return r
}

// Sub returns the account identifier jobs are created under.
func (r *Registry) Sub() string { return r.sub }

// Create starts a job expected to take duration seconds, with its actual runtime drawn from a normal distribution
// with standard deviation stdev.
func (r *Registry) Create(duration, stdev float64) (*Job, error) {
	if duration <= 0 || stdev < 0 {
		return nil, fmt.Errorf("%w: duration must be positive and stdev non-negative", shared.ErrInvalidInput)
	}
	expected := time.Duration(duration * float64(time.Second))
	if expected > MaxDuration {
		return nil, fmt.Errorf("%w: duration exceeds %v", shared.ErrInvalidInput, MaxDuration)
	}

	job := &Job{
		UID:       shared.GenerateID(),
		Sub:       r.sub,
		PbarName:  r.pbarName,
		Expected:  expected,
		Actual:    r.sample(duration, stdev),
		StartedAt: r.clock.Now(),
		Steps:     DefaultSteps,
	}

	r.mu.Lock()
	r.jobs[job.UID] = job
	r.mu.Unlock()

	r.logger.Info("job created", "uid", job.UID, "expected", job.Expected, "actual", job.Actual)
	return job, nil
}

func (r *Registry) sample(duration, stdev float64) time.Duration {
	r.rngMu.Lock()
	seconds := duration + r.rng.NormFloat64()*stdev
	r.rngMu.Unlock()

	if floor := duration * minRuntimeShare; seconds < floor {
		seconds = floor
	}
	return time.Duration(seconds * float64(time.Second))
}

// Add registers an existing job, replacing any job with the same UID.
func (r *Registry) Add(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.UID] = job
}

// Get returns the job with the given UID.
func (r *Registry) Get(uid string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, uid)
	}
	return job, nil
}

// Len returns the number of jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Authorize returns the job identified by uid when sub and pbarName match it.
func (r *Registry) Authorize(sub, uid, pbarName string) (*Job, error) {
	job, err := r.Get(uid)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown trace", shared.ErrAuthFailed)
	}
	if job.Sub != sub || job.PbarName != pbarName {
		return nil, fmt.Errorf("%w: trace does not belong to this progress bar", shared.ErrAuthFailed)
	}
	return job, nil
}

// Result returns the status document of the job at the current time.
func (r *Registry) Result(uid string) (Result, error) {
	job, err := r.Get(uid)
	if err != nil {
		return Result{}, err
	}
	return job.Result(r.clock.Now()), nil
}

// Watch streams updates of the job until it completes or ctx is done. The channel is closed afterward.
func (r *Registry) Watch(ctx context.Context, uid string) (<-chan ProgressUpdate, error) {
	job, err := r.Get(uid)
	if err != nil {
		return nil, err
	}

	updates := make(chan ProgressUpdate, 1)
	go func() {
		defer close(updates)
		for {
			update := job.Update(r.clock.Now())
			if update.Done() {
				select {
				case updates <- update:
				case <-ctx.Done():
				}
				return
			}

			sendProgress(updates, update)

			select {
			case <-ctx.Done():
				return
			case <-r.clock.After(r.interval):
			}
		}
	}()
	return updates, nil
}
