package domain

import "github.com/google/uuid"

type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderOutlook Provider = "outlook"
)

// InboundMessage is one fetched mail item, immutable once extracted. The
// mailbox stays the system of record; the struct is discarded after a
// DeliveryJob has been enqueued for it.
type InboundMessage struct {
	Provider Provider
	ID       string
	ThreadID string
	From     string
	Subject  string
	// ReplyToRef is the threading identifier replies must reference
	// (Message-ID header on Gmail, internetMessageId on Outlook).
	ReplyToRef string
	Body       string
}

// ClassificationResult pairs the assigned label with the generated reply.
// Reply is empty exactly when the label is the escalation label.
type ClassificationResult struct {
	Label Label
	Reply string
}

// Fallback is the result assigned locally when classification fails or the
// collaborator's response does not validate.
func Fallback() ClassificationResult {
	return ClassificationResult{Label: LabelHumanInterventionRequired}
}

// DeliveryJob is the durable unit of work handed to the queue. JobID is a
// correlation id assigned at creation; the broker's own message id changes
// across redeliveries and is only logged.
type DeliveryJob struct {
	JobID      string   `json:"job_id"`
	Provider   Provider `json:"provider"`
	MessageID  string   `json:"message_id"`
	ThreadID   string   `json:"thread_id"`
	Recipient  string   `json:"recipient"`
	Subject    string   `json:"subject"`
	ReplyToRef string   `json:"reply_to_ref"`
	Label      Label    `json:"label"`
	Reply      string   `json:"reply"`
}

func NewDeliveryJob(msg InboundMessage, res ClassificationResult) DeliveryJob {
	return DeliveryJob{
		JobID:      uuid.NewString(),
		Provider:   msg.Provider,
		MessageID:  msg.ID,
		ThreadID:   msg.ThreadID,
		Recipient:  msg.From,
		Subject:    msg.Subject,
		ReplyToRef: msg.ReplyToRef,
		Label:      res.Label,
		Reply:      res.Reply,
	}
}
