package view

import (
	"context"
	"strings"
	"sync"

	"threadview/models"
	"threadview/sendgate"
)

// StagedAttachments is the composer's handle on the staged attachment
// store, scoped by owner.
type StagedAttachments interface {
	Count(owner string) (int, error)
	Clear(owner string) error
}

// Composer holds the transient state of one compose box — body,
// recipient, reply linkage, staged attachments — and the send pipeline
// that guards its submission. Each open compose box gets its own value
// so concurrent composers cannot interfere.
type Composer struct {
	identity *sendgate.Identity
	owner    string
	pipeline *sendgate.Pipeline
	staged   StagedAttachments

	mu       sync.Mutex
	to       string
	subject  string
	body     string
	htmlBody string
	kind     models.ContentKind
	parentID string
	threadID string
}

// NewComposer creates a compose session for the given identity.
func NewComposer(identity *sendgate.Identity, owner string, pipeline *sendgate.Pipeline, staged StagedAttachments) *Composer {
	return &Composer{
		identity: identity,
		owner:    owner,
		pipeline: pipeline,
		staged:   staged,
		kind:     models.KindPlain,
	}
}

// SetRecipient updates the recipient field and pre-warms the
// proof-of-work pool when the address is well-formed.
func (c *Composer) SetRecipient(to string) {
	c.mu.Lock()
	c.to = to
	c.mu.Unlock()
	c.pipeline.RecipientChanged(to)
}

// SetContent updates the draft body.
func (c *Composer) SetContent(subject, body, htmlBody string, kind models.ContentKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subject = subject
	c.body = body
	c.htmlBody = htmlBody
	c.kind = kind
}

// SetReply links the draft to the message being replied to.
func (c *Composer) SetReply(threadID, parentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threadID = threadID
	c.parentID = parentID
}

// Pipeline exposes the send state machine, e.g. for state queries.
func (c *Composer) Pipeline() *sendgate.Pipeline {
	return c.pipeline
}

// Send drives one send attempt through the pipeline. On success the
// compose state — body, staged attachments, reply linkage — is reset;
// on any failure it is left intact for a user retry.
func (c *Composer) Send(ctx context.Context) (*sendgate.Result, error) {
	c.mu.Lock()
	intent := models.SendIntent{
		To:       strings.TrimSpace(c.to),
		Subject:  c.subject,
		Body:     c.body,
		HTMLBody: c.htmlBody,
		Kind:     c.kind,
		ParentID: c.parentID,
		ThreadID: c.threadID,
	}
	c.mu.Unlock()

	count, err := c.staged.Count(c.owner)
	if err != nil {
		count = 0
	}

	result, err := c.pipeline.Send(ctx, sendgate.Request{
		Identity:             c.identity,
		Intent:               intent,
		HasStagedAttachments: count > 0,
	})
	if err != nil {
		return nil, err
	}

	c.reset()
	return result, nil
}

// Close releases the pipeline's resources.
func (c *Composer) Close() {
	c.pipeline.Close()
}

func (c *Composer) reset() {
	c.mu.Lock()
	c.subject = ""
	c.body = ""
	c.htmlBody = ""
	c.kind = models.KindPlain
	c.parentID = ""
	c.threadID = ""
	c.mu.Unlock()

	_ = c.staged.Clear(c.owner)
}
