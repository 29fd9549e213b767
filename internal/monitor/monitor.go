// Package monitor owns the observation loop on a problem page: it wires
// in-page listeners and a mutation observer into an event buffer, drains that
// buffer from Go, runs periodic and post-submit success checks, and drives
// extraction and delivery when a check comes back positive.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"leetsync/internal/detect"
	"leetsync/internal/extract"
	"leetsync/internal/store"
)

// Detector produces a success verdict for the current page state.
type Detector interface {
	Scan(ctx context.Context, page *rod.Page) (detect.Signals, error)
}

// RecordExtractor produces a fresh submission record from the live page.
type RecordExtractor interface {
	Record(ctx context.Context, page *rod.Page, pageURL string) (*extract.SubmissionRecord, error)
}

// Deliverer hands a record to the backend broker.
type Deliverer interface {
	DeliverRecord(ctx context.Context, rec *extract.SubmissionRecord) error
}

// StatusSink receives local status updates.
type StatusSink interface {
	SetStatus(status store.Status) error
}

// drainInterval is how often the in-page event buffer is flushed into Go.
const drainInterval = 500 * time.Millisecond

// Config tunes the monitor loop.
type Config struct {
	// CheckInterval is the periodic success-check cadence.
	CheckInterval time.Duration
	// SubmitCheckDelays is the schedule of delayed checks after a submit
	// trigger, tuned to let the page's own result rendering finish.
	SubmitCheckDelays []time.Duration
	// PagePattern identifies a problem page by URL substring.
	PagePattern string
	// AutoSync gates delivery; detection still runs when it is off.
	AutoSync bool
}

// Monitor watches one page for successful submissions.
type Monitor struct {
	id        string
	cfg       Config
	page      *rod.Page
	detector  Detector
	extractor RecordExtractor
	deliverer Deliverer
	status    StatusSink
	log       *zap.Logger

	autoSync atomic.Bool

	mu                sync.Mutex
	inFlight          bool
	lastSubmittedCode string
	pending           []*time.Timer
}

// New creates a monitor for the given page. The page may be nil only when Run
// is never called (component tests drive checkOnce directly).
func New(cfg Config, page *rod.Page, detector Detector, extractor RecordExtractor, deliverer Deliverer, status StatusSink, log *zap.Logger) *Monitor {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}
	if len(cfg.SubmitCheckDelays) == 0 {
		cfg.SubmitCheckDelays = []time.Duration{3 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	m := &Monitor{
		id:        uuid.NewString(),
		cfg:       cfg,
		page:      page,
		detector:  detector,
		extractor: extractor,
		deliverer: deliverer,
		status:    status,
		log:       log,
	}
	m.autoSync.Store(cfg.AutoSync)
	return m
}

// SetAutoSync flips the delivery gate, typically from a settings reload.
func (m *Monitor) SetAutoSync(enabled bool) {
	m.autoSync.Store(enabled)
}

// IsProblemPage reports whether url looks like a monitored problem page.
func IsProblemPage(url, pattern string) bool {
	if pattern == "" {
		return true
	}
	return strings.Contains(url, pattern)
}

// Run attaches the in-page listeners and blocks until ctx is done. All
// pipeline errors are logged and absorbed; Run returns an error only when the
// page cannot be instrumented at all.
func (m *Monitor) Run(ctx context.Context) error {
	url := m.currentURL()
	if !IsProblemPage(url, m.cfg.PagePattern) {
		return errors.New("not a monitored problem page: " + url)
	}

	if err := m.injectListeners(ctx); err != nil {
		return err
	}
	m.setStatus(store.StatusConnected)
	m.log.Info("monitoring started",
		zap.String("session", m.id),
		zap.String("url", url),
		zap.Duration("interval", m.cfg.CheckInterval))

	g, ctx := errgroup.WithContext(ctx)

	// Drain the in-page event buffer.
	g.Go(func() error {
		ticker := time.NewTicker(drainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				m.drainEvents(ctx)
			}
		}
	})

	// Periodic success checks, independent of any trigger.
	g.Go(func() error {
		ticker := time.NewTicker(m.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				m.checkOnce(ctx)
			}
		}
	})

	err := g.Wait()
	m.cancelPendingChecks()
	return err
}

// injectListeners installs the submit-trigger listeners and the mutation
// observer. Re-running is a no-op thanks to the window guard, so a page that
// re-executes scripts cannot double-hook.
func (m *Monitor) injectListeners(ctx context.Context) error {
	_, err := m.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		() => {
			const w = window;
			if (w.__leetsyncHooked) return true;
			w.__leetsyncHooked = true;
			w.__leetsyncEvents = [];

			const isSubmitControl = (el) => {
				if (!el || !el.closest) return false;
				const text = (el.textContent || '').toLowerCase();
				const cls = (typeof el.className === 'string' ? el.className : '').toLowerCase();
				const cy = (el.getAttribute && (el.getAttribute('data-cy') || '')).toLowerCase();
				const e2e = (el.getAttribute && (el.getAttribute('data-e2e-locator') || '')).toLowerCase();
				return text.includes('submit') || cls.includes('submit') ||
					cy.includes('submit') || e2e.includes('submit') ||
					!!el.closest('[data-cy*="submit"]') ||
					!!el.closest('[data-e2e-locator*="submit"]');
			};

			document.addEventListener('click', (ev) => {
				try {
					if (isSubmitControl(ev.target)) {
						w.__leetsyncEvents.push({ type: 'submit', via: 'click', ts: Date.now() });
					}
				} catch (e) {}
			}, true);

			document.addEventListener('submit', () => {
				w.__leetsyncEvents.push({ type: 'submit', via: 'form', ts: Date.now() });
			}, true);

			document.addEventListener('keydown', (ev) => {
				if ((ev.ctrlKey || ev.metaKey) && ev.key === 'Enter') {
					w.__leetsyncEvents.push({ type: 'submit', via: 'keyboard', ts: Date.now() });
				}
			}, true);

			const obs = new MutationObserver((mutations) => {
				for (const mut of mutations) {
					if (mut.type !== 'childList' || mut.addedNodes.length === 0) continue;
					for (const node of mut.addedNodes) {
						if (node.nodeType !== 1) continue;
						const text = node.textContent || '';
						if (text.includes('Accepted') || text.includes('Wrong Answer') ||
							text.includes('Time Limit Exceeded') || text.includes('Runtime Error')) {
							w.__leetsyncEvents.push({ type: 'result', ts: Date.now() });
						}
					}
				}
			});
			obs.observe(document.body, { childList: true, subtree: true });
			return true;
		}
		`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return errors.Join(errors.New("instrument page"), err)
	}
	return nil
}

type pageEvent struct {
	Type string  `json:"type"`
	Via  string  `json:"via"`
	TS   float64 `json:"ts"`
}

// drainEvents flushes the in-page buffer and dispatches each event.
func (m *Monitor) drainEvents(ctx context.Context) {
	res, err := m.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		() => {
			const buf = Array.isArray(window.__leetsyncEvents) ? window.__leetsyncEvents : [];
			window.__leetsyncEvents = [];
			return buf;
		}
		`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil || res == nil || res.Value.Nil() {
		return
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return
	}
	var events []pageEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return
	}

	for _, ev := range events {
		switch ev.Type {
		case "submit":
			m.log.Debug("submit trigger", zap.String("via", ev.Via))
			m.onSubmitAttempt(ctx)
		case "result":
			m.log.Debug("result mutation observed")
			m.checkOnce(ctx)
		}
	}
}

// onSubmitAttempt schedules delayed success checks. The handles are tracked so
// a completed delivery can cancel checks that have not fired yet.
func (m *Monitor) onSubmitAttempt(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, delay := range m.cfg.SubmitCheckDelays {
		timer := time.AfterFunc(delay, func() {
			if ctx.Err() != nil {
				return
			}
			m.checkOnce(ctx)
		})
		m.pending = append(m.pending, timer)
	}
}

// cancelPendingChecks stops delayed checks that have not fired. Called after a
// delivery completed so stale timers cannot re-trigger the pipeline.
func (m *Monitor) cancelPendingChecks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, timer := range m.pending {
		timer.Stop()
	}
	m.pending = nil
}

// checkOnce asks the detector for a verdict and, if positive, runs the
// delivery pipeline. Safe to call from overlapping triggers.
func (m *Monitor) checkOnce(ctx context.Context) {
	signals, err := m.detector.Scan(ctx, m.page)
	if err != nil {
		m.log.Debug("detection failed", zap.Error(err))
		return
	}
	if !signals.HasSuccess() {
		return
	}
	m.handleSuccess(ctx)
}

// handleSuccess extracts and delivers one submission. The in-flight flag
// collapses overlapping positive detections into a single attempt; later
// triggers are dropped, not queued.
func (m *Monitor) handleSuccess(ctx context.Context) {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		m.log.Debug("delivery already in flight, dropping trigger")
		return
	}
	m.inFlight = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	rec, err := m.extractor.Record(ctx, m.page, m.currentURL())
	if err != nil {
		// Extraction failure is recoverable: log, surface locally, keep monitoring.
		m.log.Warn("extraction failed", zap.Error(err))
		return
	}

	if !m.autoSync.Load() {
		m.log.Info("auto-sync disabled, submission detected but not delivered",
			zap.String("slug", rec.Slug))
		return
	}

	m.mu.Lock()
	if rec.Code == m.lastSubmittedCode {
		m.mu.Unlock()
		m.log.Debug("duplicate submission content, skipping delivery",
			zap.String("slug", rec.Slug))
		return
	}
	// Optimistic: remember the code before the network confirms, so rapid
	// repeated triggers cannot re-send it.
	m.lastSubmittedCode = rec.Code
	m.mu.Unlock()

	if err := m.deliverer.DeliverRecord(ctx, rec); err != nil {
		m.log.Error("delivery failed",
			zap.String("slug", rec.Slug),
			zap.Error(err))
		return
	}

	m.log.Info("submission delivered", zap.String("slug", rec.Slug))
	m.cancelPendingChecks()
}

func (m *Monitor) currentURL() string {
	if m.page == nil {
		return ""
	}
	info, err := m.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (m *Monitor) setStatus(status store.Status) {
	if m.status == nil {
		return
	}
	if err := m.status.SetStatus(status); err != nil {
		m.log.Warn("status update failed", zap.Error(err))
	}
}
