// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
)

const (
	defaultNavigationTimeout = 60 * time.Second
	frameLookupTimeout       = 10 * time.Second
)

// frameRef is one level of the active frame path.
type frameRef struct {
	loc  schemas.Locator
	node *cdp.Node
}

// window is a browser tab with its own chromedp context.
type window struct {
	handle string
	ctx    context.Context
	cancel context.CancelFunc
	frames []frameRef
}

// Session drives one Chrome instance through chromedp and implements
// schemas.Driver. It tracks tabs as windows and a frame path per window.
type Session struct {
	id     string
	cfg    config.BrowserConfig
	logger *zap.Logger

	rootCtx     context.Context
	allocCancel context.CancelFunc

	mu      sync.Mutex
	windows map[string]*window
	active  string
	// nodes caches resolved nodes so element actions can use the full node
	// (frame membership, box model) rather than a bare ID.
	nodes  map[cdp.NodeID]*cdp.Node
	closed bool
}

var _ schemas.Driver = (*Session)(nil)

func newSession(id string, cfg config.BrowserConfig, logger *zap.Logger, tabCtx context.Context, tabCancel, allocCancel context.CancelFunc) *Session {
	handle := targetHandle(tabCtx)
	return &Session{
		id:          id,
		cfg:         cfg,
		logger:      logger,
		rootCtx:     tabCtx,
		allocCancel: allocCancel,
		windows: map[string]*window{
			handle: {handle: handle, ctx: tabCtx, cancel: tabCancel},
		},
		active: handle,
		nodes:  make(map[cdp.NodeID]*cdp.Node),
	}
}

func targetHandle(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if c := chromedp.FromContext(ctx); c != nil && c.Target != nil {
		return string(c.Target.TargetID)
	}
	return ""
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

func (s *Session) current() (*window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("browser session is closed")
	}
	w, ok := s.windows[s.active]
	if !ok {
		return nil, fmt.Errorf("active window %q no longer exists", s.active)
	}
	return w, nil
}

// run executes actions against the active window, bounded by ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	w, err := s.current()
	if err != nil {
		return err
	}
	opCtx, cancel := CombineContext(w.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

func (s *Session) remember(nodes []*cdp.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.nodes[n.NodeID] = n
	}
}

func (s *Session) node(el schemas.Element) *cdp.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[cdp.NodeID(el.ID)]; ok {
		return n
	}
	return &cdp.Node{NodeID: cdp.NodeID(el.ID)}
}

// forgetNodes drops cached nodes; node IDs do not survive a document change.
func (s *Session) forgetNodes() {
	s.mu.Lock()
	s.nodes = make(map[cdp.NodeID]*cdp.Node)
	s.mu.Unlock()
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	navCtx, cancel := context.WithTimeout(ctx, s.navigationTimeout())
	defer cancel()

	if err := s.run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %s: %w", url, s.navigationTimeout(), err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	s.resetFrames()
	s.forgetNodes()
	return nil
}

func (s *Session) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navigationTimeout())
	defer cancel()
	if err := s.run(navCtx, chromedp.Reload()); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	s.resetFrames()
	s.forgetNodes()
	return nil
}

func (s *Session) navigationTimeout() time.Duration {
	if s.cfg.NavigationTimeout > 0 {
		return s.cfg.NavigationTimeout
	}
	return defaultNavigationTimeout
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return html, nil
}

func (s *Session) Evaluate(ctx context.Context, script string, res interface{}) error {
	if err := s.run(ctx, chromedp.Evaluate(script, res)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// Close shuts every tab and the browser process. It is safe to call twice.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	windows := s.windows
	s.windows = map[string]*window{}
	s.mu.Unlock()

	for handle, w := range windows {
		if w.ctx == s.rootCtx {
			continue
		}
		w.cancel()
		s.logger.Debug("Closed window.", zap.String("window", handle))
	}
	if root, ok := windows[targetHandle(s.rootCtx)]; ok {
		root.cancel()
	}
	s.allocCancel()
	s.logger.Info("Browser session closed.")
	return nil
}
