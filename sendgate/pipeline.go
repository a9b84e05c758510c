package sendgate

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"threadview/models"
	"threadview/utils"
)

// State is the pipeline's position in one send attempt.
type State int

const (
	StateIdle State = iota
	StateVerifyingHuman
	StateUploadingAttachments
	StateComputingProofOfWork
	StateSubmitting
	StateSucceeded
	StateFailed
	StateRetryPending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateVerifyingHuman:
		return "verifying_human"
	case StateUploadingAttachments:
		return "uploading_attachments"
	case StateComputingProofOfWork:
		return "computing_proof_of_work"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateRetryPending:
		return "retry_pending"
	default:
		return "unknown"
	}
}

var (
	// ErrSendInFlight means another send is already running on this
	// pipeline; the trigger is ignored.
	ErrSendInFlight = errors.New("send already in flight")
	// ErrEmptyBody rejects a send whose trimmed body is empty.
	ErrEmptyBody = errors.New("message body is empty")
	// ErrNoRecipient rejects a send without a parseable recipient.
	ErrNoRecipient = errors.New("recipient address is missing or malformed")
	// ErrNotAuthenticated rejects a send without a local identity.
	ErrNotAuthenticated = errors.New("no authenticated identity")
	// ErrVerificationTimeout means no human-verification token arrived
	// within the wait ceiling.
	ErrVerificationTimeout = errors.New("human verification timed out")
	// ErrUploadFailed wraps an attachment upload failure. Staged
	// attachments are retained for a user retry.
	ErrUploadFailed = errors.New("attachment upload failed")
	// ErrRetryDifficulty is the recoverable difficulty-insufficient
	// rejection: compose state is intact and the caller is expected to
	// invoke the pipeline again, at which point the proof-of-work
	// provider produces a harder token.
	ErrRetryDifficulty = errors.New("proof of work rejected, retry with higher difficulty")
	// ErrSubmitRejected is a terminal submission failure.
	ErrSubmitRejected = errors.New("message submission rejected")
)

// Identity is the authenticated local account a send is issued as.
type Identity struct {
	Address     string
	DisplayName string
}

// Request is one send trigger: who is sending, what, and whether the
// upload step has work to do.
type Request struct {
	Identity             *Identity
	Intent               models.SendIntent
	HasStagedAttachments bool
}

// Result carries the success-path output: the locally-synthesized
// message already appended to the thread.
type Result struct {
	Message models.Message
}

// Config wires a pipeline's collaborators.
type Config struct {
	Verification VerificationSource
	Provider     ProofOfWorkProvider
	Uploader     AttachmentUploader
	Submitter    Submitter
	Updater      ThreadUpdater
	Logger       *utils.Logger

	// VerifyTimeout caps the wait for a verification token. Zero means
	// the 30 second default.
	VerifyTimeout time.Duration
	// MinDifficultyBits is the starting proof-of-work difficulty.
	MinDifficultyBits int
}

// Pipeline is the send authorization state machine. One value per
// composer: the single-flight guard is scoped to the pipeline, so two
// open composers cannot block each other.
type Pipeline struct {
	verification VerificationSource
	provider     ProofOfWorkProvider
	uploader     AttachmentUploader
	submitter    Submitter
	updater      ThreadUpdater
	logger       *utils.Logger

	verifyTimeout time.Duration

	inFlight atomic.Bool

	mu                sync.Mutex
	state             State
	verificationToken string
	difficultyRetried bool
	difficultyBits    int

	prefill *rate.Limiter
}

// New creates an idle pipeline.
func New(cfg Config) *Pipeline {
	timeout := cfg.VerifyTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = utils.Log
	}
	return &Pipeline{
		verification:   cfg.Verification,
		provider:       cfg.Provider,
		uploader:       cfg.Uploader,
		submitter:      cfg.Submitter,
		updater:        cfg.Updater,
		logger:         logger,
		verifyTimeout:  timeout,
		state:          StateIdle,
		difficultyBits: cfg.MinDifficultyBits,
		prefill:        rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RecipientChanged pre-warms the proof-of-work token pool once the
// recipient field holds a well-formed address. Best-effort and off the
// send's critical path; bursts are throttled.
func (p *Pipeline) RecipientChanged(addr string) {
	if _, err := mail.ParseAddress(strings.TrimSpace(addr)); err != nil {
		return
	}
	if !p.prefill.Allow() {
		return
	}
	go p.provider.EnsurePoolFilled(addr)
}

// Close tears the pipeline down, releasing provider resources.
func (p *Pipeline) Close() {
	p.provider.Cleanup()
}

// Send drives one attempt from entry guard to a terminal state. The
// in-flight guard is cleared on every exit path, panics included.
func (p *Pipeline) Send(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Intent.Body) == "" {
		return nil, ErrEmptyBody
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Intent.To)); err != nil {
		return nil, ErrNoRecipient
	}
	if req.Identity == nil || req.Identity.Address == "" {
		return nil, ErrNotAuthenticated
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSendInFlight
	}
	defer func() {
		p.inFlight.Store(false)
		p.mu.Lock()
		if p.state == StateSucceeded || p.state == StateFailed {
			p.state = StateIdle
		}
		p.mu.Unlock()
	}()

	verifyToken, err := p.awaitVerification(ctx)
	if err != nil {
		p.setState(StateFailed)
		return nil, err
	}

	intent := req.Intent
	if req.HasStagedAttachments {
		p.setState(StateUploadingAttachments)
		descriptors, err := p.uploader.UploadAllStaged(ctx)
		if err != nil {
			p.setState(StateFailed)
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		intent.Attachments = descriptors
	}

	p.setState(StateComputingProofOfWork)
	powToken, err := p.provider.GetToken(ctx, intent.To)
	if err != nil {
		p.setState(StateFailed)
		return nil, fmt.Errorf("proof of work unavailable: %w", err)
	}

	p.setState(StateSubmitting)
	outcome, err := p.submitter.Submit(ctx, req.Identity.Address, intent, powToken, verifyToken)
	if err != nil {
		p.discardToken()
		p.clearRetryFlag()
		p.setState(StateFailed)
		return nil, fmt.Errorf("%w: %v", ErrSubmitRejected, err)
	}
	return p.resolveOutcome(req, intent, outcome)
}

// awaitVerification waits for a human-verification token, reusing one
// already held. The wait is a channel receive bounded by the
// configured ceiling.
func (p *Pipeline) awaitVerification(ctx context.Context) (string, error) {
	p.mu.Lock()
	held := p.verificationToken
	p.mu.Unlock()
	if held != "" {
		return held, nil
	}

	p.setState(StateVerifyingHuman)
	timer := time.NewTimer(p.verifyTimeout)
	defer timer.Stop()

	select {
	case token := <-p.verification.Token():
		p.mu.Lock()
		p.verificationToken = token
		p.mu.Unlock()
		return token, nil
	case <-timer.C:
		return "", ErrVerificationTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// resolveOutcome maps the submission response to a terminal state or
// the single difficulty retry.
func (p *Pipeline) resolveOutcome(req Request, intent models.SendIntent, outcome *SubmitOutcome) (*Result, error) {
	if outcome.StatusCode == 429 && outcome.RetryWithHigherDifficulty {
		p.discardToken()

		p.mu.Lock()
		first := !p.difficultyRetried
		p.difficultyRetried = first
		bits := p.difficultyBits + 1
		if first {
			p.difficultyBits = bits
		}
		p.mu.Unlock()

		if !first {
			// Second identical signal in a row is terminal: a single
			// retry cap, matching the upstream contract.
			p.setState(StateFailed)
			return nil, fmt.Errorf("%w: difficulty retry exhausted", ErrSubmitRejected)
		}
		p.provider.SetMinimumDifficulty(bits)
		p.setState(StateRetryPending)
		p.logger.Warn("send rejected for insufficient difficulty, retry pending: to=%s bits=%d", intent.To, bits)
		return nil, ErrRetryDifficulty
	}

	if outcome.Status != "success" || !outcome.Success {
		p.discardToken()
		p.clearRetryFlag()
		p.setState(StateFailed)
		return nil, fmt.Errorf("%w: status=%s", ErrSubmitRejected, outcome.Status)
	}

	// Success: discard single-use tokens, synthesize the optimistic
	// entry, hand off reconciliation.
	p.discardToken()
	p.clearRetryFlag()

	msg := models.Message{
		ID:          uuid.New().String(),
		ThreadID:    intent.ThreadID,
		ParentID:    intent.ParentID,
		From:        req.Identity.Address,
		To:          intent.To,
		Subject:     intent.Subject,
		Body:        intent.Body,
		HTMLBody:    intent.HTMLBody,
		Kind:        intent.Kind,
		Date:        time.Now(),
		Seen:        true,
		Attachments: intent.Attachments,
		Pending:     true,
	}
	if p.updater != nil {
		p.updater.AppendOptimistic(msg)
		go p.updater.Reconcile(intent.ThreadID)
	}
	p.setState(StateSucceeded)
	p.logger.Info("message sent: to=%s thread=%s id=%s", intent.To, intent.ThreadID, msg.ID)
	return &Result{Message: msg}, nil
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// discardToken drops the held verification token and resets the
// widget; the tokens are single-use.
func (p *Pipeline) discardToken() {
	p.mu.Lock()
	had := p.verificationToken != ""
	p.verificationToken = ""
	p.mu.Unlock()
	if had {
		p.verification.Reset()
	}
}

func (p *Pipeline) clearRetryFlag() {
	p.mu.Lock()
	p.difficultyRetried = false
	p.mu.Unlock()
}
