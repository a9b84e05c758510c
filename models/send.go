package models

// SendIntent captures one outbound send at the moment the user triggers
// it. It is built once per attempt and never mutated after submission
// begins.
type SendIntent struct {
	To          string                 `json:"to"`
	Subject     string                 `json:"subject"`
	Body        string                 `json:"body"`
	HTMLBody    string                 `json:"html_body,omitempty"`
	Kind        ContentKind            `json:"kind"`
	ParentID    string                 `json:"parent_id,omitempty"`
	ThreadID    string                 `json:"thread_id,omitempty"`
	Attachments []AttachmentDescriptor `json:"attachments,omitempty"`
}
