// ABOUTME: Network monitor tracking online/offline transitions for the chat client
// ABOUTME: Offline pushes one "Network connection lost" error; a probe loop drives transitions

package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/chat"
	apperrors "github.com/dheeraj009joshi/WeCare-sub002/internal/errors"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
)

const (
	DefaultProbeInterval = 15 * time.Second
	DefaultProbeTimeout  = 5 * time.Second
)

// Reporter receives the synthetic offline error.
type Reporter interface {
	Add(err error, context string) string
}

// Prober checks whether the backend is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// HTTPProber issues a GET against URL. Any HTTP response counts as online;
// only transport failures count as offline.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Monitor holds the current connectivity state. It never pauses retries.
type Monitor struct {
	reporter Reporter

	mu      sync.RWMutex
	online  bool
	changes chat.Signal
}

// New returns a monitor that starts online.
func New(reporter Reporter) *Monitor {
	return &Monitor{reporter: reporter, online: true}
}

// SetOnline applies a connectivity transition. Repeating the current state is a no-op.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.mu.Unlock()

	if online {
		logger.Info("netmon: connection restored")
	} else {
		logger.Warn("netmon: connection lost")
		if m.reporter != nil {
			m.reporter.Add(apperrors.ErrNetworkLost, "network")
		}
	}
	m.changes.Notify()
}

func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Changes signals on every transition.
func (m *Monitor) Changes() <-chan struct{} {
	return m.changes.Subscribe()
}

// Run probes every interval until ctx is done, feeding results to SetOnline.
func (m *Monitor) Run(ctx context.Context, p Prober, interval, timeout time.Duration) {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.probeOnce(ctx, p, timeout)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) probeOnce(ctx context.Context, p Prober, timeout time.Duration) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.Probe(probeCtx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Debug("netmon: probe failed: %v", err)
	}
	m.SetOnline(err == nil)
}
