// Package browser manages the Chrome connection: attaching to a running
// instance over the DevTools protocol or launching a fresh one, and locating
// the problem page to monitor.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"leetsync/internal/config"
)

// Session owns one browser connection.
type Session struct {
	mu         sync.Mutex
	browser    *rod.Browser
	controlURL string
	launched   bool
	log        *zap.Logger
}

func NewSession(log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{log: log}
}

// Connect attaches to the browser described by cfg. When cfg.ControlURL is
// set it attaches to that running instance; otherwise it launches a new one
// with the configured binary.
func (s *Session) Connect(ctx context.Context, cfg config.BrowserConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		s.log.Warn("stale browser connection, reconnecting")
		_ = s.browser.Close()
		s.browser = nil
		s.controlURL = ""
	}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		launch := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			launch = launch.Bin(cfg.Bin)
		}
		url, err := launch.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
		s.launched = true
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	s.browser = browser
	s.controlURL = controlURL
	s.log.Info("browser connected", zap.String("control_url", controlURL))
	return nil
}

// ControlURL returns the WebSocket debugger URL.
func (s *Session) ControlURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlURL
}

// FindProblemPage returns the first open tab whose URL contains pattern, or
// nil when no tab matches.
func (s *Session) FindProblemPage(ctx context.Context, pattern string) (*rod.Page, error) {
	s.mu.Lock()
	browser := s.browser
	s.mu.Unlock()
	if browser == nil {
		return nil, fmt.Errorf("browser not connected")
	}

	pages, err := browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, page := range pages {
		info, err := page.Context(ctx).Info()
		if err != nil {
			continue
		}
		if strings.Contains(info.URL, pattern) {
			return page, nil
		}
	}
	return nil, nil
}

// OpenPage opens url in a new tab and waits for the load event.
func (s *Session) OpenPage(ctx context.Context, url string) (*rod.Page, error) {
	s.mu.Lock()
	browser := s.browser
	s.mu.Unlock()
	if browser == nil {
		return nil, fmt.Errorf("browser not connected")
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	return page, nil
}

// Close disconnects from the browser. A browser this process launched is shut
// down; an attached one is left running.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return nil
	}
	var err error
	if s.launched {
		err = s.browser.Close()
	}
	s.browser = nil
	s.controlURL = ""
	return err
}
