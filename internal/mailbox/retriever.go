// Package mailbox retrieves one-time verification codes sent to a temporary
// mailbox, through the provider's web inbox, its HTTP API, or IMAP.
package mailbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/retry"
)

// CodeRetriever waits for a verification code to arrive in a mailbox.
// Failure is always an OtpNotReceived error.
type CodeRetriever interface {
	RetrieveCode(ctx context.Context, mb schemas.Mailbox) (schemas.VerificationCode, error)
}

const (
	ModeWebUI = "webui"
	ModeAPI   = "api"
	ModeIMAP  = "imap"
)

// New builds the retriever selected by cfg.Mode. The driver is only used by
// the web UI binding and may be nil otherwise.
func New(cfg config.MailboxConfig, d schemas.Driver, logger *zap.Logger) (CodeRetriever, error) {
	pol := retry.Policy{MaxAttempts: cfg.PollAttempts, Delay: cfg.PollDelay}
	switch cfg.Mode {
	case ModeWebUI:
		if d == nil {
			return nil, fmt.Errorf("mailbox mode %q requires a browser driver", cfg.Mode)
		}
		return NewWebInbox(d, cfg.Web, pol, logger), nil
	case ModeAPI, "":
		return NewAPIClient(cfg.API, pol, logger)
	case ModeIMAP:
		return NewIMAPInbox(cfg.IMAP, pol, logger), nil
	default:
		return nil, fmt.Errorf("unknown mailbox mode %q", cfg.Mode)
	}
}

func notReceived(mb schemas.Mailbox, err error) error {
	return schemas.NewError(schemas.ErrCodeOtpNotReceived, mb.Address, err)
}

func awaiting(mb schemas.Mailbox) string {
	return "verification code for " + mb.Address
}
