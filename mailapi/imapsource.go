package mailapi

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"threadview/models"
	"threadview/utils"
)

// threadHeader is the message header the IMAP source matches threads on.
const threadHeader = "X-Thread-Id"

// IMAPConfig configures the IMAP-backed thread source.
type IMAPConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	Folder   string
}

// IMAPSource reads conversation threads straight from an IMAP mailbox.
// It implements the same thread-read contract as the HTTP client and
// is used when the deployment has mailbox credentials but no mail API.
type IMAPSource struct {
	cfg    IMAPConfig
	logger *utils.Logger
}

// NewIMAPSource creates an IMAP thread source.
func NewIMAPSource(cfg IMAPConfig, logger *utils.Logger) *IMAPSource {
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if logger == nil {
		logger = utils.Log
	}
	return &IMAPSource{cfg: cfg, logger: logger}
}

// FetchThread returns every mailbox message carrying the thread ID.
// Each call dials a fresh connection; thread loads are infrequent
// enough that connection pooling is not worth carrying.
func (s *IMAPSource) FetchThread(ctx context.Context, threadID string) ([]models.Message, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", s.cfg.Server, s.cfg.Port), nil)
	if err != nil {
		return nil, fmt.Errorf("connection error: %v", err)
	}
	defer c.Logout()

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		return nil, fmt.Errorf("login error: %v", err)
	}

	if _, err := c.Select(s.cfg.Folder, true); err != nil {
		return nil, fmt.Errorf("error selecting folder %s: %v", s.cfg.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header = textproto.MIMEHeader{threadHeader: {threadID}}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search error: %v", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var result []models.Message
	for msg := range messages {
		converted, err := s.convert(msg, threadID, section)
		if err != nil {
			s.logger.Warn("skipping unreadable message uid=%d: %v", msg.Uid, err)
			continue
		}
		result = append(result, converted)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch error: %v", err)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return result, nil
}

// convert maps one IMAP message onto the thread model.
func (s *IMAPSource) convert(msg *imap.Message, threadID string, section *imap.BodySectionName) (models.Message, error) {
	out := models.Message{
		ID:       fmt.Sprintf("%d", msg.Uid),
		ThreadID: threadID,
		Kind:     models.KindPlain,
	}

	if env := msg.Envelope; env != nil {
		out.Subject = env.Subject
		out.Date = env.Date
		out.ID = env.MessageId
		if len(env.From) > 0 {
			out.From = env.From[0].Address()
		}
		if len(env.To) > 0 {
			addrs := make([]string, 0, len(env.To))
			for _, a := range env.To {
				addrs = append(addrs, a.Address())
			}
			out.To = strings.Join(addrs, ", ")
		}
		if len(env.InReplyTo) > 0 {
			out.ParentID = env.InReplyTo
		}
	}

	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			out.Seen = true
			break
		}
	}

	raw := msg.GetBody(section)
	if raw == nil {
		return out, nil
	}
	parsed, err := mail.ReadMessage(raw)
	if err != nil {
		return out, fmt.Errorf("parse error: %v", err)
	}
	body, err := io.ReadAll(parsed.Body)
	if err != nil {
		return out, fmt.Errorf("read error: %v", err)
	}

	contentType := parsed.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		out.HTMLBody = string(body)
		out.Kind = models.KindHTML
		out.Body = utils.PreviewText(out.HTMLBody, 0)
	} else {
		out.Body = string(body)
	}
	return out, nil
}
