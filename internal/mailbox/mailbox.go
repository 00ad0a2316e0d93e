package mailbox

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"inbox-rpa/internal/config"
)

// Message is the read-only view of one mailbox message handed to the triage
// pipeline. Instances are constructed only by this package.
type Message struct {
	UID        uint32
	From       string
	Subject    string
	Text       string
	HTML       string
	RawHeaders string
}

// Provider abstracts the mailbox backend for the orchestrator.
type Provider interface {
	// FetchUnread returns the current unread snapshot. Each returned message
	// has already been marked read (at-most-once semantics).
	FetchUnread(ctx context.Context) ([]Message, error)
	MarkRead(uid uint32) error
	Close() error
}

// IMAPProvider implements Provider over an IMAP mailbox.
type IMAPProvider struct {
	cfg config.IMAPConfig
}

// NewIMAPProvider creates a provider for the configured IMAP account.
func NewIMAPProvider(cfg config.IMAPConfig) *IMAPProvider {
	return &IMAPProvider{cfg: cfg}
}

// connect dials and logs in a fresh IMAP session. Every operation is
// session-scoped; the caller must Logout.
func (p *IMAPProvider) connect() (*client.Client, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(p.cfg.User, p.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return c, nil
}

// FetchUnread fetches all unseen messages from INBOX and marks each one read
// before returning.
func (p *IMAPProvider) FetchUnread(ctx context.Context) ([]Message, error) {
	c, err := p.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search unread messages: %w", err)
	}

	if len(seqNums) == 0 {
		return []Message{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNums...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem(), imap.FetchUid}

	ch := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)

	go func() {
		done <- c.Fetch(seqset, items, ch)
	}()

	messages, fetched := collectMessages(ch, section)

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Mark-on-fetch: the snapshot is considered consumed once returned. This
	// covers unparsable messages too, so a permanently malformed message is
	// not refetched every cycle.
	if len(fetched) > 0 {
		markSet := new(imap.SeqSet)
		markSet.AddNum(fetched...)
		op := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(markSet, op, []interface{}{imap.SeenFlag}, nil); err != nil {
			logrus.Errorf("Failed to mark fetched messages as read: %v", err)
		}
	}

	logrus.Infof("Fetched %d unread messages", len(messages))
	return messages, nil
}

// collectMessages drains one fetch, returning the parsed messages and the UID
// of every fetched message, including those whose MIME parse failed.
func collectMessages(ch <-chan *imap.Message, section *imap.BodySectionName) ([]Message, []uint32) {
	var messages []Message
	var fetched []uint32

	for msg := range ch {
		fetched = append(fetched, msg.Uid)
		m, err := parseMessage(msg, section)
		if err != nil {
			logrus.Warnf("Failed to parse message (uid=%d): %v", msg.Uid, err)
			continue
		}
		messages = append(messages, m)
	}

	return messages, fetched
}

// MarkRead sets the \Seen flag on a single message by UID.
func (p *IMAPProvider) MarkRead(uid uint32) error {
	c, err := p.connect()
	if err != nil {
		return err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", false); err != nil {
		return fmt.Errorf("failed to select INBOX: %w", err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	op := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqset, op, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("failed to mark message %d as read: %w", uid, err)
	}

	return nil
}

// Close is a no-op; sessions are scoped per operation.
func (p *IMAPProvider) Close() error {
	return nil
}

// parseMessage converts a fetched IMAP message into the pipeline's view.
func parseMessage(msg *imap.Message, section *imap.BodySectionName) (Message, error) {
	m := Message{UID: msg.Uid}

	if msg.Envelope != nil {
		m.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			m.From = msg.Envelope.From[0].Address()
		}
	}

	r := msg.GetBody(section)
	if r == nil {
		return m, fmt.Errorf("message has no body section")
	}

	entity, err := message.Read(r)
	if err != nil {
		return m, fmt.Errorf("failed to read message entity: %w", err)
	}

	m.RawHeaders = headerBlock(entity)

	if err := walkEntity(entity, &m); err != nil {
		return m, err
	}

	return m, nil
}

// walkEntity fills Text and HTML from the MIME structure.
func walkEntity(entity *message.Entity, m *Message) error {
	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read MIME part: %w", err)
			}
			m.RawHeaders += headerBlock(part)
			if err := walkEntity(part, m); err != nil {
				return err
			}
		}
		return nil
	}

	content, err := io.ReadAll(entity.Body)
	if err != nil {
		return fmt.Errorf("failed to read part body: %w", err)
	}

	contentType := entity.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "text/html"):
		if m.HTML == "" {
			m.HTML = string(content)
		}
	case strings.Contains(contentType, "text/plain") || contentType == "":
		// Untyped single-part bodies are treated as plain text.
		if m.Text == "" {
			m.Text = string(content)
		}
	}

	return nil
}

// headerBlock renders an entity's headers as a raw header block so the
// extractor can look for transfer-encoding tokens.
func headerBlock(entity *message.Entity) string {
	var b strings.Builder
	fields := entity.Header.Fields()
	for fields.Next() {
		b.WriteString(fields.Key())
		b.WriteString(": ")
		b.WriteString(fields.Value())
		b.WriteString("\r\n")
	}
	return b.String()
}
