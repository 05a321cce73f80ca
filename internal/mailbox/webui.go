package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/retry"
)

// InboxState tracks where a WebInbox retrieval is.
type InboxState int

const (
	StateIdle InboxState = iota
	StateContextSwitched
	StatePolling
	StateCodeFound
	StateTimedOut
	StateContextRestored
)

func (s InboxState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateContextSwitched:
		return "context_switched"
	case StatePolling:
		return "polling"
	case StateCodeFound:
		return "code_found"
	case StateTimedOut:
		return "timed_out"
	case StateContextRestored:
		return "context_restored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	bodyTimeout    = 5 * time.Second
	restoreTimeout = 15 * time.Second
)

// WebInbox reads codes from the provider's public inbox page, opened in a
// second browser window. The caller's window and frame are restored on
// every return path.
type WebInbox struct {
	driver schemas.Driver
	cfg    config.WebInboxConfig
	policy retry.Policy
	logger *zap.Logger

	mu      sync.Mutex
	history []InboxState
}

func NewWebInbox(d schemas.Driver, cfg config.WebInboxConfig, policy retry.Policy, logger *zap.Logger) *WebInbox {
	logger = logger.Named("otp_web")
	policy.Logger = logger
	return &WebInbox{driver: d, cfg: cfg, policy: policy, logger: logger}
}

// States returns the states visited by the most recent retrieval.
func (w *WebInbox) States() []InboxState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]InboxState(nil), w.history...)
}

func (w *WebInbox) enter(s InboxState) {
	w.mu.Lock()
	w.history = append(w.history, s)
	w.mu.Unlock()
	w.logger.Debug("Inbox state.", zap.Stringer("state", s))
}

func (w *WebInbox) RetrieveCode(ctx context.Context, mb schemas.Mailbox) (code schemas.VerificationCode, err error) {
	w.mu.Lock()
	w.history = nil
	w.mu.Unlock()
	w.enter(StateIdle)

	origin := w.driver.CurrentContext()
	url := fmt.Sprintf(w.cfg.InboxURL, mb.LocalPart)
	handle, err := w.driver.OpenWindow(ctx, url)
	if err != nil {
		return "", notReceived(mb, fmt.Errorf("opening inbox %s: %w", url, err))
	}

	defer func() {
		// Restore even when ctx is already cancelled.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
		defer cancel()
		rerr := w.driver.RestoreContext(rctx, origin)
		if cerr := w.driver.CloseWindow(rctx, handle); cerr != nil {
			w.logger.Warn("Failed to close inbox window.", zap.String("window", handle), zap.Error(cerr))
		}
		if rerr != nil {
			w.logger.Error("Failed to restore browser context.", zap.String("window", origin.Window), zap.Error(rerr))
			err = errors.Join(err, fmt.Errorf("restoring browser context: %w", rerr))
			return
		}
		w.enter(StateContextRestored)
	}()

	if err := w.driver.SwitchWindow(ctx, handle); err != nil {
		return "", notReceived(mb, fmt.Errorf("switching to inbox window: %w", err))
	}
	w.enter(StateContextSwitched)

	w.enter(StatePolling)
	code, err = retry.Poll(ctx, w.policy, awaiting(mb), func(ctx context.Context, attempt int) (schemas.VerificationCode, bool, error) {
		return w.checkListing(ctx, handle, url, attempt)
	})
	if err != nil {
		w.enter(StateTimedOut)
		return "", notReceived(mb, err)
	}
	w.enter(StateCodeFound)
	w.logger.Info("Verification code received.", zap.String("mailbox", mb.Address))
	return code, nil
}

// checkListing looks at the listing once. Earlier attempts leave the window
// on a message view, so later ones load the listing URL again.
func (w *WebInbox) checkListing(ctx context.Context, handle, url string, attempt int) (schemas.VerificationCode, bool, error) {
	if attempt > 1 {
		if err := w.driver.SwitchWindow(ctx, handle); err != nil {
			return "", false, err
		}
		if err := w.driver.Navigate(ctx, url); err != nil {
			return "", false, fmt.Errorf("reloading inbox: %w", err)
		}
	}

	rows, err := w.driver.FindAll(ctx, schemas.ByCSS(w.cfg.RowSelector))
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	if err := w.driver.Click(ctx, rows[0]); err != nil {
		return "", false, fmt.Errorf("opening message: %w", err)
	}

	if w.cfg.FrameSelector != "" {
		if err := w.driver.SwitchFrame(ctx, schemas.ByCSS(w.cfg.FrameSelector)); err != nil {
			return "", false, fmt.Errorf("entering message frame: %w", err)
		}
	}
	body, err := w.driver.Find(ctx, schemas.ByCSS(w.cfg.BodySelector), bodyTimeout)
	if err != nil {
		return "", false, err
	}
	text, err := w.driver.Text(ctx, body)
	if err != nil {
		return "", false, err
	}
	code, ok := ExtractCode(text)
	return code, ok, nil
}
