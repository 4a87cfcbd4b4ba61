package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"autorespond/internal/domain"
)

// prompt instructs the model to answer with a single "Label_reply" line. The
// escalation label is deliberately absent: it is only ever assigned locally.
const prompt = `### Task:
1. Categorize the email content into one of the following labels:
   - Interested
   - NotInterested
   - MoreInformation

2. Based on the label, generate an appropriate response.

### Rules:
If the client is interested, label "Interested" and suggest a demo call; if not interested, label "NotInterested" and acknowledge their decision; if they want more info, label "MoreInformation" and provide details with a follow-up call suggestion.

You just have to return a line, where the assigned label and reply should be separated by underscore(_). Do not include more than one underscore in the output. The reply should be a single sentence. Make sure to greet the sender first and appreciate them taking out the time to respond back and then add the business statement.

Input:

`

const separator = "_"

type Client struct {
	api   openai.Client
	model string
	log   *slog.Logger
}

func NewClient(apiKey, model string, log *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is not set")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Client{
		api:   client,
		model: model,
		log:   log.With("component", "classifier"),
	}, nil
}

// Classify labels the message body and generates a reply. It never returns
// an error: any transport failure or malformed completion degrades to the
// escalation label with an empty reply, so classification cannot halt the
// pipeline.
func (c *Client) Classify(ctx context.Context, body string) domain.ClassificationResult {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt + body),
		},
	})
	if err != nil {
		c.log.Error("completion request failed", "error", err)
		return domain.Fallback()
	}

	if len(resp.Choices) == 0 {
		c.log.Error("empty completion response")
		return domain.Fallback()
	}

	res, err := parseCompletion(resp.Choices[0].Message.Content)
	if err != nil {
		c.log.Error("completion did not validate", "error", err)
		return domain.Fallback()
	}

	c.log.Debug("classified", "label", res.Label, "reply", res.Reply)
	return res
}

// parseCompletion validates the constrained "Label_reply" response format:
// exactly one separator, a case-exact non-escalation label, a non-empty
// reply.
func parseCompletion(text string) (domain.ClassificationResult, error) {
	parts := strings.Split(strings.TrimSpace(text), separator)
	if len(parts) != 2 {
		return domain.ClassificationResult{}, fmt.Errorf("expected 2 parts, got %d", len(parts))
	}

	label := domain.Label(parts[0])
	if !label.IsValid() || label.IsEscalation() {
		return domain.ClassificationResult{}, fmt.Errorf("unexpected label %q", parts[0])
	}

	if parts[1] == "" {
		return domain.ClassificationResult{}, fmt.Errorf("empty reply for label %q", parts[0])
	}

	return domain.ClassificationResult{Label: label, Reply: parts[1]}, nil
}
