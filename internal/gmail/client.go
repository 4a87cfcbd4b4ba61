package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/gmail/v1"

	"autorespond/internal/domain"
)

// Client adapts the Gmail API to the provider contract the poller and the
// worker depend on. Only the poller creates labels; the worker resolves
// existing ones.
type Client struct {
	srv *gmail.Service
	log *slog.Logger

	// exclusion is the immutable taxonomy-derived query fragment.
	exclusion string
	window    time.Duration

	mu       sync.Mutex
	labelIDs map[string]string // lowercased name -> id
}

func NewClient(srv *gmail.Service, exclusion string, window time.Duration, log *slog.Logger) *Client {
	return &Client{
		srv:       srv,
		log:       log.With("component", "gmail"),
		exclusion: exclusion,
		window:    window,
		labelIDs:  make(map[string]string),
	}
}

func (c *Client) Name() domain.Provider {
	return domain.ProviderGmail
}

// Profile resolves the authenticated user's address. Used as a startup
// check: if this fails the Gmail poller does not start.
func (c *Client) Profile(ctx context.Context) (string, error) {
	res, err := c.srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail get profile: %w", err)
	}
	return res.EmailAddress, nil
}

// ListCandidates returns ids of unread messages received inside the recency
// window that do not already carry a taxonomy label.
func (c *Client) ListCandidates(ctx context.Context) ([]string, error) {
	cutoff := time.Now().Add(-c.window).Unix()
	q := buildQuery(cutoff, c.exclusion)

	res, err := c.srv.Users.Messages.List("me").Q(q).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list messages: %w", err)
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func buildQuery(cutoff int64, exclusion string) string {
	return fmt.Sprintf("is:unread after:%d%s", cutoff, exclusion)
}

func (c *Client) GetMessage(ctx context.Context, id string) (domain.InboundMessage, error) {
	msg, err := c.srv.Users.Messages.Get("me", id).Format("FULL").Context(ctx).Do()
	if err != nil {
		return domain.InboundMessage{}, fmt.Errorf("gmail get message: %w", err)
	}

	return domain.InboundMessage{
		Provider:   domain.ProviderGmail,
		ID:         id,
		ThreadID:   msg.ThreadId,
		From:       header(msg, "From"),
		Subject:    header(msg, "Subject"),
		ReplyToRef: header(msg, "Message-ID"),
		Body:       extractBody(msg),
	}, nil
}

// EnsureLabel looks the label up by case-insensitive name and creates it on
// a miss. Gmail occasionally answers creation with a 409 when the label
// raced into existence; the lookup is retried in that case.
func (c *Client) EnsureLabel(ctx context.Context, name string) (string, error) {
	if id, err := c.lookupLabel(ctx, name); err != nil || id != "" {
		return id, err
	}

	created, err := c.srv.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		if strings.Contains(err.Error(), "Label name exists or conflicts") {
			c.log.Info("label already exists (409 conflict), re-listing", "label", name)
			id, lerr := c.lookupLabel(ctx, name)
			if lerr != nil {
				return "", lerr
			}
			if id == "" {
				// The list can lag the conflicting label; fail so the
				// message is retried on a later cycle instead of being
				// enqueued without a resolved label.
				return "", fmt.Errorf("gmail label %q conflicted on create but is not listed yet", name)
			}
			return id, nil
		}
		return "", fmt.Errorf("gmail create label %q: %w", name, err)
	}

	c.mu.Lock()
	c.labelIDs[strings.ToLower(name)] = created.Id
	c.mu.Unlock()

	c.log.Info("label created", "label", name, "id", created.Id)
	return created.Id, nil
}

func (c *Client) lookupLabel(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(name)

	c.mu.Lock()
	id, ok := c.labelIDs[key]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	res, err := c.srv.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail list labels: %w", err)
	}

	for _, l := range res.Labels {
		if strings.EqualFold(l.Name, name) {
			c.mu.Lock()
			c.labelIDs[key] = l.Id
			c.mu.Unlock()
			return l.Id, nil
		}
	}
	return "", nil
}

// SendReply sends the reply threaded into the original conversation.
func (c *Client) SendReply(ctx context.Context, job domain.DeliveryJob) error {
	raw := buildRawReply(job)
	encoded := base64.URLEncoding.EncodeToString([]byte(raw))

	_, err := c.srv.Users.Messages.Send("me", &gmail.Message{
		Raw:      encoded,
		ThreadId: job.ThreadID,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send reply: %w", err)
	}
	return nil
}

func buildRawReply(job domain.DeliveryJob) string {
	return fmt.Sprintf(
		"To: %s\r\nSubject: Re: %s\r\nIn-Reply-To: %s\r\nReferences: %s\r\n\r\n%s",
		job.Recipient, job.Subject, job.ReplyToRef, job.ReplyToRef, job.Reply,
	)
}

// ApplyLabel adds an already-existing taxonomy label to the source thread.
// It never creates labels; an unresolved name is an error.
func (c *Client) ApplyLabel(ctx context.Context, job domain.DeliveryJob) error {
	name := job.Label.DisplayName()
	id, err := c.lookupLabel(ctx, name)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("label %q not found", name)
	}

	_, err = c.srv.Users.Threads.Modify("me", job.ThreadID, &gmail.ModifyThreadRequest{
		AddLabelIds: []string{id},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail modify thread: %w", err)
	}
	return nil
}

func (c *Client) MarkRead(ctx context.Context, job domain.DeliveryJob) error {
	_, err := c.srv.Users.Messages.Modify("me", job.MessageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail mark read: %w", err)
	}
	return nil
}

func header(msg *gmail.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func extractBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		d, _ := base64.URLEncoding.DecodeString(msg.Payload.Body.Data)
		return string(d)
	}

	var plain strings.Builder
	for _, p := range msg.Payload.Parts {
		if p.MimeType == "text/plain" && p.Body != nil && p.Body.Data != "" {
			d, _ := base64.URLEncoding.DecodeString(p.Body.Data)
			plain.Write(d)
			plain.WriteByte(' ')
		}
	}
	return strings.TrimSpace(plain.String())
}
