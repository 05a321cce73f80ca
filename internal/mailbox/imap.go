package mailbox

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/config"
	"github.com/xkilldash9x/regwizard/internal/retry"
)

// newestMessages bounds how many matching messages are inspected per attempt.
const newestMessages = 3

const defaultIMAPTimeout = 30 * time.Second

// imapSession is the subset of *client.Client used here.
type imapSession interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
	Terminate() error
}

type dialFunc func(ctx context.Context, addr string, useTLS bool, timeout time.Duration) (imapSession, error)

// dialIMAP connects and reads the greeting. The dialer timeout also bounds
// the greeting, and the context deadline, when earlier, bounds the connect.
func dialIMAP(ctx context.Context, addr string, useTLS bool, timeout time.Duration) (imapSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dialer := &net.Dialer{Timeout: timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}
	var (
		c   *client.Client
		err error
	)
	if useTLS {
		c, err = client.DialWithDialerTLS(dialer, addr, nil)
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, err
	}
	c.Timeout = timeout
	return c, nil
}

// IMAPInbox reads codes from a private mail server. Each attempt opens a
// fresh connection, searches for messages addressed to the mailbox and
// inspects the newest ones.
type IMAPInbox struct {
	cfg    config.IMAPConfig
	policy retry.Policy
	logger *zap.Logger
	dial   dialFunc
}

func NewIMAPInbox(cfg config.IMAPConfig, policy retry.Policy, logger *zap.Logger) *IMAPInbox {
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultIMAPTimeout
	}
	logger = logger.Named("otp_imap")
	policy.Logger = logger
	return &IMAPInbox{cfg: cfg, policy: policy, logger: logger, dial: dialIMAP}
}

func (m *IMAPInbox) RetrieveCode(ctx context.Context, mb schemas.Mailbox) (schemas.VerificationCode, error) {
	code, err := retry.Poll(ctx, m.policy, awaiting(mb), func(ctx context.Context, _ int) (schemas.VerificationCode, bool, error) {
		return m.check(ctx, mb)
	})
	if err != nil {
		return "", notReceived(mb, err)
	}
	m.logger.Info("Verification code received.", zap.String("mailbox", mb.Address))
	return code, nil
}

func (m *IMAPInbox) check(ctx context.Context, mb schemas.Mailbox) (schemas.VerificationCode, bool, error) {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	c, err := m.dial(ctx, addr, m.cfg.UseTLS, m.cfg.Timeout)
	if err != nil {
		return "", false, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer c.Logout()
	// Cancellation closes the connection, which unblocks any pending command.
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		return "", false, retry.Stop(fmt.Errorf("imap login as %s: %w", m.cfg.Username, err))
	}
	status, err := c.Select(m.cfg.Folder, true)
	if err != nil {
		return "", false, fmt.Errorf("selecting %s: %w", m.cfg.Folder, err)
	}
	if status != nil && status.Messages == 0 {
		return "", false, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("To", mb.Address)
	seqNums, err := c.Search(criteria)
	if err != nil {
		return "", false, fmt.Errorf("searching %s: %w", m.cfg.Folder, err)
	}
	if len(seqNums) == 0 {
		return "", false, nil
	}
	sort.Slice(seqNums, func(i, j int) bool { return seqNums[i] > seqNums[j] })
	if len(seqNums) > newestMessages {
		seqNums = seqNums[:newestMessages]
	}
	m.logger.Debug("Matching messages found.", zap.Int("count", len(seqNums)))

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)
	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, messages)
	}()

	byseq := map[uint32]string{}
	for msg := range messages {
		if msg == nil {
			continue
		}
		r := msg.GetBody(section)
		if r == nil {
			continue
		}
		text, err := MessageText(r)
		if err != nil {
			m.logger.Warn("Failed to parse message body.", zap.Uint32("seq", msg.SeqNum), zap.Error(err))
			continue
		}
		byseq[msg.SeqNum] = text
	}
	if err := <-done; err != nil {
		return "", false, fmt.Errorf("fetching messages: %w", err)
	}

	for _, seq := range seqNums {
		if code, ok := ExtractCode(byseq[seq]); ok {
			return code, true, nil
		}
	}
	return "", false, nil
}
