package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// CurrentContext reports the active window and frame path.
func (s *Session) CurrentContext() schemas.ContextHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := schemas.ContextHandle{Window: s.active}
	if w, ok := s.windows[s.active]; ok {
		for _, f := range w.frames {
			h.Frames = append(h.Frames, f.loc)
		}
	}
	return h
}

// OpenWindow opens url in a new tab without making it active.
func (s *Session) OpenWindow(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", fmt.Errorf("browser session is closed")
	}

	// A context derived from an existing tab context opens a new tab in the
	// same browser on first Run.
	tabCtx, tabCancel := chromedp.NewContext(s.rootCtx)
	// The first Run binds the tab's lifetime to its context, so it must not
	// carry the caller's deadline.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return "", fmt.Errorf("failed to open window: %w", err)
	}
	runCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		tabCancel()
		return "", fmt.Errorf("failed to open window for %s: %w", url, err)
	}

	handle := targetHandle(tabCtx)
	s.mu.Lock()
	s.windows[handle] = &window{handle: handle, ctx: tabCtx, cancel: tabCancel}
	s.mu.Unlock()

	s.logger.Debug("Opened window.", zap.String("window", handle), zap.String("url", url))
	return handle, nil
}

func (s *Session) SwitchWindow(ctx context.Context, handle string) error {
	s.mu.Lock()
	w, ok := s.windows[handle]
	if ok {
		s.active = handle
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown window %q", handle)
	}

	bringCtx, cancel := CombineContext(w.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(bringCtx, page.BringToFront()); err != nil {
		s.logger.Debug("BringToFront failed.", zap.String("window", handle), zap.Error(err))
	}
	return nil
}

// CloseWindow closes a tab opened by OpenWindow. If it was active, the
// session falls back to the first tab.
func (s *Session) CloseWindow(ctx context.Context, handle string) error {
	s.mu.Lock()
	w, ok := s.windows[handle]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown window %q", handle)
	}
	if w.ctx == s.rootCtx {
		s.mu.Unlock()
		return fmt.Errorf("refusing to close the primary window")
	}
	delete(s.windows, handle)
	if s.active == handle {
		s.active = targetHandle(s.rootCtx)
	}
	s.mu.Unlock()

	// Cancelling a context that created its tab closes the tab.
	w.cancel()
	s.logger.Debug("Closed window.", zap.String("window", handle))
	return nil
}

func (s *Session) activeFrame() *cdp.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[s.active]
	if !ok || len(w.frames) == 0 {
		return nil
	}
	return w.frames[len(w.frames)-1].node
}

func (s *Session) resetFrames() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[s.active]; ok {
		w.frames = nil
	}
}

// SwitchFrame descends into the iframe matched by loc within the active frame.
func (s *Session) SwitchFrame(ctx context.Context, loc schemas.Locator) error {
	el, err := s.Find(ctx, loc, frameLookupTimeout)
	if err != nil {
		return fmt.Errorf("frame %s: %w", loc, err)
	}
	n := s.node(el)

	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[s.active]
	if !ok {
		return fmt.Errorf("active window %q no longer exists", s.active)
	}
	w.frames = append(w.frames, frameRef{loc: loc, node: n})
	return nil
}

// RestoreContext returns to the window and frame path recorded in h.
func (s *Session) RestoreContext(ctx context.Context, h schemas.ContextHandle) error {
	if err := s.SwitchWindow(ctx, h.Window); err != nil {
		return err
	}
	s.resetFrames()
	for _, loc := range h.Frames {
		if err := s.SwitchFrame(ctx, loc); err != nil {
			return fmt.Errorf("restore frame path: %w", err)
		}
	}
	return nil
}
