package sendgate

import (
	"context"

	"threadview/models"
)

// VerificationSource is the human-verification widget. Tokens arrive
// asynchronously on the channel as the widget completes challenges;
// Reset discards widget state so a fresh token can be requested.
type VerificationSource interface {
	Token() <-chan string
	Reset()
}

// ProofOfWorkProvider produces proof-of-work tokens keyed by recipient
// address. GetToken may take arbitrary time; the provider owns its own
// retry and backoff. EnsurePoolFilled is fire-and-forget pre-warming.
type ProofOfWorkProvider interface {
	GetToken(ctx context.Context, recipient string) (string, error)
	EnsurePoolFilled(recipient string)
	SetMinimumDifficulty(bits int)
	Cleanup()
}

// AttachmentUploader uploads every staged attachment in one
// all-or-nothing operation and returns the finalized descriptors.
type AttachmentUploader interface {
	UploadAllStaged(ctx context.Context) ([]models.AttachmentDescriptor, error)
}

// SubmitOutcome is the mail API's answer to one submission request.
type SubmitOutcome struct {
	StatusCode                int
	Status                    string
	Success                   bool
	RetryWithHigherDifficulty bool
}

// Submitter carries one outbound message to the mail submission
// endpoint on behalf of the sender address. A transport-level failure
// is returned as an error; any HTTP response becomes a SubmitOutcome.
type Submitter interface {
	Submit(ctx context.Context, from string, intent models.SendIntent, powToken, verificationToken string) (*SubmitOutcome, error)
}

// ThreadUpdater receives the success-path side effects: the optimistic
// local entry and the follow-up reconciliation against the
// authoritative thread source.
type ThreadUpdater interface {
	AppendOptimistic(msg models.Message)
	Reconcile(threadID string)
}
