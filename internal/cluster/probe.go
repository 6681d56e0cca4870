package cluster

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/zerospeak/stranglergw/internal/observability"
)

// Probe default configuration constants.
const (
	// DefaultProbeTimeout is the default timeout for a single TCP dial.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultProbeInterval is the default interval between probe rounds.
	DefaultProbeInterval = 10 * time.Second

	// DefaultHealthyThreshold is the number of consecutive successful dials
	// required to mark a cluster as reachable.
	DefaultHealthyThreshold = 2

	// DefaultUnhealthyThreshold is the number of consecutive failed dials
	// required to mark a cluster as unreachable.
	DefaultUnhealthyThreshold = 3
)

// ProbeStatusFunc is called when a cluster's reachability changes.
type ProbeStatusFunc func(cluster string, healthy bool)

// Prober periodically dials every cluster in a registry and updates cluster
// status. A cluster flips status only after the configured number of
// consecutive results, so a single blip does not flap readiness.
type Prober struct {
	registry *Registry
	logger   observability.Logger
	metrics  *observability.Metrics

	interval           time.Duration
	timeout            time.Duration
	healthyThreshold   int
	unhealthyThreshold int
	onStatusChange     ProbeStatusFunc

	mu              sync.Mutex
	running         bool
	stopCh          chan struct{}
	stoppedCh       chan struct{}
	healthyCounts   map[*Cluster]int
	unhealthyCounts map[*Cluster]int
}

// ProberOption is a functional option for configuring the prober.
type ProberOption func(*Prober)

// WithProberLogger sets the logger for the prober.
func WithProberLogger(logger observability.Logger) ProberOption {
	return func(p *Prober) {
		p.logger = logger
	}
}

// WithProberMetrics sets the metrics recorder for the prober.
func WithProberMetrics(metrics *observability.Metrics) ProberOption {
	return func(p *Prober) {
		p.metrics = metrics
	}
}

// WithProbeInterval sets the interval between probe rounds.
func WithProbeInterval(interval time.Duration) ProberOption {
	return func(p *Prober) {
		p.interval = interval
	}
}

// WithProbeTimeout sets the timeout for a single TCP dial.
func WithProbeTimeout(timeout time.Duration) ProberOption {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// WithProbeStatusCallback sets a callback for reachability changes.
func WithProbeStatusCallback(fn ProbeStatusFunc) ProberOption {
	return func(p *Prober) {
		p.onStatusChange = fn
	}
}

// NewProber creates a prober for all clusters in the registry.
func NewProber(registry *Registry, opts ...ProberOption) *Prober {
	p := &Prober{
		registry:           registry,
		logger:             observability.NopLogger(),
		interval:           DefaultProbeInterval,
		timeout:            DefaultProbeTimeout,
		healthyThreshold:   DefaultHealthyThreshold,
		unhealthyThreshold: DefaultUnhealthyThreshold,
		stopCh:             make(chan struct{}),
		stoppedCh:          make(chan struct{}),
		healthyCounts:      make(map[*Cluster]int),
		unhealthyCounts:    make(map[*Cluster]int),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start starts the probe loop.
func (p *Prober) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop stops the probe loop and waits for it to exit.
func (p *Prober) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.stoppedCh
}

// IsRunning reports whether the probe loop is active.
func (p *Prober) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// run is the main probe loop.
func (p *Prober) run(ctx context.Context) {
	defer close(p.stoppedCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial round so readiness settles before the first tick.
	p.probeAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.probeAll(ctx)
		}
	}
}

// probeAll probes every cluster concurrently.
func (p *Prober) probeAll(ctx context.Context) {
	var wg sync.WaitGroup

	for _, c := range p.registry.All() {
		wg.Add(1)
		go func(c *Cluster) {
			defer wg.Done()
			p.probe(ctx, c)
		}(c)
	}

	wg.Wait()
}

// probe dials a single cluster.
func (p *Prober) probe(ctx context.Context, c *Cluster) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Address())
	if err != nil {
		p.recordFailure(c, err)
		return
	}
	_ = conn.Close()

	p.recordSuccess(c)
}

// recordSuccess records a successful dial.
func (p *Prober) recordSuccess(c *Cluster) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.healthyCounts[c]++
	p.unhealthyCounts[c] = 0

	if p.healthyCounts[c] < p.healthyThreshold {
		return
	}
	if c.Status() == StatusHealthy {
		return
	}

	c.SetStatus(StatusHealthy)
	p.metrics.SetClusterUp(c.Name(), true)
	p.logger.Info("cluster became reachable",
		observability.String("cluster", c.Name()),
		observability.String("address", c.Address()),
	)
	if p.onStatusChange != nil {
		p.onStatusChange(c.Name(), true)
	}
}

// recordFailure records a failed dial.
func (p *Prober) recordFailure(c *Cluster, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unhealthyCounts[c]++
	p.healthyCounts[c] = 0

	if p.unhealthyCounts[c] < p.unhealthyThreshold {
		return
	}
	if c.Status() == StatusUnhealthy {
		return
	}

	c.SetStatus(StatusUnhealthy)
	p.metrics.SetClusterUp(c.Name(), false)
	p.logger.Warn("cluster became unreachable",
		observability.String("cluster", c.Name()),
		observability.String("address", c.Address()),
		observability.Error(err),
	)
	if p.onStatusChange != nil {
		p.onStatusChange(c.Name(), false)
	}
}
