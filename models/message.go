package models

import "time"

// ContentKind identifies how a message body must be rendered.
type ContentKind string

const (
	KindPlain ContentKind = "plain"
	KindHTML  ContentKind = "html"
)

// Message represents one message in a conversation thread.
type Message struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"thread_id"`
	ParentID    string       `json:"parent_id,omitempty"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	HTMLBody    string       `json:"html_body,omitempty"`
	Kind        ContentKind  `json:"kind"`
	Date        time.Time    `json:"date"`
	Seen        bool         `json:"seen"`
	Attachments []AttachmentDescriptor `json:"attachments,omitempty"`

	// SenderIQ is the sender's reputation score, nil when the lookup
	// has not completed or returned nothing.
	SenderIQ *int `json:"sender_iq,omitempty"`

	// Pending marks a locally-synthesized entry awaiting reconciliation
	// against the authoritative thread source.
	Pending bool `json:"pending,omitempty"`
}

// LocalPart returns the part of the sender address before the '@',
// used as the reputation lookup key.
func (m *Message) LocalPart() string {
	for i := 0; i < len(m.From); i++ {
		if m.From[i] == '@' {
			return m.From[:i]
		}
	}
	return m.From
}

// AttachmentDescriptor describes an uploaded attachment. The bytes
// themselves live with the mail API; the descriptor only references them.
type AttachmentDescriptor struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// StagedAttachment is an attachment the user has added to a compose
// session but that has not been uploaded yet.
type StagedAttachment struct {
	AttachmentDescriptor
	Content []byte `json:"-"`
}
