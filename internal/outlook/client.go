package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"autorespond/internal/domain"
)

const graphBase = "https://graph.microsoft.com/v1.0"

// Client adapts the Microsoft Graph mail API to the provider contract. The
// http client is expected to carry an oauth2 transport that injects and
// refreshes the bearer token.
type Client struct {
	http   *http.Client
	base   string
	log    *slog.Logger
	window time.Duration

	mu         sync.Mutex
	categories map[string]string // lowercased name -> id
}

func NewClient(httpClient *http.Client, window time.Duration, log *slog.Logger) *Client {
	return &Client{
		http:       httpClient,
		base:       graphBase,
		log:        log.With("component", "outlook"),
		window:     window,
		categories: make(map[string]string),
	}
}

func (c *Client) Name() domain.Provider {
	return domain.ProviderOutlook
}

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"emailAddress"`
}

type graphMessage struct {
	ID                string         `json:"id"`
	ConversationID    string         `json:"conversationId"`
	Subject           string         `json:"subject"`
	InternetMessageID string         `json:"internetMessageId"`
	Sender            graphRecipient `json:"sender"`
	Body              struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}

// Profile resolves the authenticated mailbox address. Startup check: the
// Outlook poller does not run if this fails.
func (c *Client) Profile(ctx context.Context) (string, error) {
	var me struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := c.do(ctx, http.MethodGet, "/me", nil, &me); err != nil {
		return "", fmt.Errorf("graph get profile: %w", err)
	}
	if me.Mail != "" {
		return me.Mail, nil
	}
	return me.UserPrincipalName, nil
}

// ListCandidates returns ids of unread messages received inside the recency
// window. Graph cannot filter on categories in the same query, so the
// dedupe ledger keeps queued-but-unread messages from being refetched.
func (c *Client) ListCandidates(ctx context.Context) ([]string, error) {
	since := time.Now().Add(-c.window).UTC().Format(time.RFC3339)
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("isRead eq false and receivedDateTime ge %s", since))
	q.Set("$select", "id")

	var res struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, "/me/messages?"+q.Encode(), nil, &res); err != nil {
		return nil, fmt.Errorf("graph list messages: %w", err)
	}

	ids := make([]string, 0, len(res.Value))
	for _, m := range res.Value {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) GetMessage(ctx context.Context, id string) (domain.InboundMessage, error) {
	q := url.Values{}
	q.Set("$select", "id,conversationId,subject,body,sender,internetMessageId")

	var msg graphMessage
	path := fmt.Sprintf("/me/messages/%s?%s", url.PathEscape(id), q.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &msg); err != nil {
		return domain.InboundMessage{}, fmt.Errorf("graph get message: %w", err)
	}

	body := msg.Body.Content
	if strings.EqualFold(msg.Body.ContentType, "html") {
		body = StripHTML(body)
	}

	return domain.InboundMessage{
		Provider:   domain.ProviderOutlook,
		ID:         msg.ID,
		ThreadID:   msg.ConversationID,
		From:       msg.Sender.EmailAddress.Address,
		Subject:    msg.Subject,
		ReplyToRef: msg.InternetMessageID,
		Body:       strings.TrimSpace(body),
	}, nil
}

// EnsureLabel resolves a master category by case-insensitive name, creating
// it if absent. Categories are Outlook's label objects.
func (c *Client) EnsureLabel(ctx context.Context, name string) (string, error) {
	if id, err := c.lookupCategory(ctx, name); err != nil || id != "" {
		return id, err
	}

	var created struct {
		ID string `json:"id"`
	}
	payload := map[string]string{
		"displayName": name,
		"color":       "preset0",
	}
	if err := c.do(ctx, http.MethodPost, "/me/outlook/masterCategories", payload, &created); err != nil {
		return "", fmt.Errorf("graph create category %q: %w", name, err)
	}

	c.mu.Lock()
	c.categories[strings.ToLower(name)] = created.ID
	c.mu.Unlock()

	c.log.Info("category created", "category", name, "id", created.ID)
	return created.ID, nil
}

func (c *Client) lookupCategory(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(name)

	c.mu.Lock()
	id, ok := c.categories[key]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var res struct {
		Value []struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, "/me/outlook/masterCategories", nil, &res); err != nil {
		return "", fmt.Errorf("graph list categories: %w", err)
	}

	for _, cat := range res.Value {
		if strings.EqualFold(cat.DisplayName, name) {
			c.mu.Lock()
			c.categories[key] = cat.ID
			c.mu.Unlock()
			return cat.ID, nil
		}
	}
	return "", nil
}

// SendReply posts a reply into the original conversation.
func (c *Client) SendReply(ctx context.Context, job domain.DeliveryJob) error {
	var to graphRecipient
	to.EmailAddress.Address = job.Recipient

	payload := map[string]any{
		"message": map[string]any{
			"toRecipients": []graphRecipient{to},
		},
		"comment": job.Reply,
	}

	path := fmt.Sprintf("/me/messages/%s/reply", url.PathEscape(job.MessageID))
	if err := c.do(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("graph send reply: %w", err)
	}
	return nil
}

// ApplyLabel adds the taxonomy category to the source message. PATCH on
// categories replaces the whole collection, so the current list is read
// first and the category appended to preserve any user categories.
func (c *Client) ApplyLabel(ctx context.Context, job domain.DeliveryJob) error {
	path := "/me/messages/" + url.PathEscape(job.MessageID)

	q := url.Values{}
	q.Set("$select", "categories")

	var cur struct {
		Categories []string `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil, &cur); err != nil {
		return fmt.Errorf("graph get categories: %w", err)
	}

	name := job.Label.DisplayName()
	for _, cat := range cur.Categories {
		if strings.EqualFold(cat, name) {
			return nil
		}
	}

	payload := map[string]any{
		"categories": append(cur.Categories, name),
	}
	if err := c.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("graph apply category: %w", err)
	}
	return nil
}

func (c *Client) MarkRead(ctx context.Context, job domain.DeliveryJob) error {
	payload := map[string]any{"isRead": true}
	path := "/me/messages/" + url.PathEscape(job.MessageID)
	if err := c.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("graph mark read: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
