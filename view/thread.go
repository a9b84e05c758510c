package view

import (
	"context"
	"sort"
	"sync"
	"time"

	"threadview/models"
	"threadview/sanitize"
	"threadview/utils"
)

// ThreadSource reads all messages sharing a thread ID. Satisfied by
// the mail API client and the IMAP source.
type ThreadSource interface {
	FetchThread(ctx context.Context, threadID string) ([]models.Message, error)
}

// ReputationSource looks up a sender reputation score by local-part.
type ReputationSource interface {
	LookupReputation(ctx context.Context, localPart string) (*int, error)
}

// ReadNotifier tells the mail API a message has been displayed.
type ReadNotifier interface {
	MarkRead(ctx context.Context, messageID string) error
}

const reputationTTL = 10 * time.Minute

// ThreadView owns the state of one open conversation: the sanitized
// message list and the expansion set. Both are replaced wholesale on
// every load, never mutated in place, so readers either see the old
// snapshot or the new one.
type ThreadView struct {
	source     ThreadSource
	reputation ReputationSource
	notifier   ReadNotifier
	engine     *sanitize.Engine
	repCache   *utils.MemoryCache
	logger     *utils.Logger

	mu        sync.RWMutex
	thread    *models.Thread
	expansion models.ExpansionState
	theme     sanitize.ThemeMode
}

// NewThreadView creates a view over the given collaborators. The
// reputation source and notifier may be nil; those lookups are
// best-effort extras.
func NewThreadView(source ThreadSource, reputation ReputationSource, notifier ReadNotifier, engine *sanitize.Engine, logger *utils.Logger) *ThreadView {
	if logger == nil {
		logger = utils.Log
	}
	return &ThreadView{
		source:     source,
		reputation: reputation,
		notifier:   notifier,
		engine:     engine,
		repCache:   utils.NewMemoryCache(),
		logger:     logger,
	}
}

// Load fetches a thread, sanitizes every body for the given theme and
// derives a fresh expansion state: unread messages and the newest
// message start expanded. Sender reputations are looked up for all
// distinct senders concurrently and applied in one update; unread
// messages are marked read best-effort.
func (v *ThreadView) Load(ctx context.Context, threadID string, theme sanitize.ThemeMode) (*models.Thread, models.ExpansionState, error) {
	messages, err := v.source.FetchThread(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Date.Before(messages[j].Date)
	})

	for i := range messages {
		v.renderBody(&messages[i], theme)
	}

	v.applyReputations(ctx, messages)

	expansion := deriveExpansion(messages)

	thread := &models.Thread{
		ID:           threadID,
		Messages:     messages,
		Participants: participants(messages),
	}
	if len(messages) > 0 {
		thread.Subject = messages[0].Subject
		thread.LastDate = messages[len(messages)-1].Date
	}

	v.mu.Lock()
	v.thread = thread
	v.expansion = expansion
	v.theme = theme
	v.mu.Unlock()

	v.notifyRead(messages)

	return thread, expansion, nil
}

// Snapshot returns the current thread and expansion state.
func (v *ThreadView) Snapshot() (*models.Thread, models.ExpansionState) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.thread, v.expansion
}

// AppendOptimistic adds a locally-synthesized entry to the open thread
// and marks it expanded. Part of the send pipeline's success path.
func (v *ThreadView) AppendOptimistic(msg models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.thread == nil || (msg.ThreadID != "" && msg.ThreadID != v.thread.ID) {
		return
	}

	v.renderBody(&msg, v.theme)

	// Replace the containers rather than mutating them in place.
	updated := *v.thread
	updated.Messages = append(append([]models.Message{}, v.thread.Messages...), msg)
	updated.LastDate = msg.Date

	expansion := models.ExpansionState{}
	for id := range v.expansion {
		expansion[id] = true
	}
	expansion.Expand(msg.ID)

	v.thread = &updated
	v.expansion = expansion
}

// Reconcile reloads the thread from the authoritative source,
// replacing the optimistic entry with the server's version. Failures
// leave the optimistic state in place; the next load corrects it.
func (v *ThreadView) Reconcile(threadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	v.mu.RLock()
	theme := v.theme
	v.mu.RUnlock()

	if _, _, err := v.Load(ctx, threadID, theme); err != nil {
		v.logger.Warn("thread reconcile failed: thread=%s err=%v", threadID, err)
	}
}

// renderBody fills HTMLBody with markup safe to inject: sanitized for
// HTML content, escaped pre-formatted text for plain content.
func (v *ThreadView) renderBody(msg *models.Message, theme sanitize.ThemeMode) {
	if msg.Kind == models.KindHTML && msg.HTMLBody != "" {
		msg.HTMLBody = v.engine.SanitizeThemed(msg.HTMLBody, theme)
		if msg.Body == "" {
			msg.Body = utils.PreviewText(msg.HTMLBody, 0)
		}
		return
	}
	msg.Kind = models.KindPlain
	msg.HTMLBody = v.engine.RenderPlain(msg.Body)
}

// applyReputations issues one lookup per distinct sender local-part,
// all concurrently, and writes the scores back only after every lookup
// has finished. Failures are logged and leave the score nil.
func (v *ThreadView) applyReputations(ctx context.Context, messages []models.Message) {
	if v.reputation == nil {
		return
	}

	pending := make(map[string]bool)
	scores := make(map[string]*int)
	for i := range messages {
		key := messages[i].LocalPart()
		if key == "" {
			continue
		}
		if cached, ok := v.repCache.Get(key); ok {
			scores[key] = cached.(*int)
			continue
		}
		pending[key] = true
	}

	if len(pending) > 0 {
		var mu sync.Mutex
		var wg sync.WaitGroup
		for key := range pending {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				score, err := v.reputation.LookupReputation(ctx, key)
				if err != nil {
					v.logger.Warn("reputation lookup failed: sender=%s err=%v", key, err)
					return
				}
				mu.Lock()
				scores[key] = score
				mu.Unlock()
				v.repCache.Set(key, score, reputationTTL)
			}(key)
		}
		wg.Wait()
	}

	for i := range messages {
		if score, ok := scores[messages[i].LocalPart()]; ok {
			messages[i].SenderIQ = score
		}
	}
}

// notifyRead fires mark-as-read requests for unread messages.
// Best-effort: failures are logged and never block the load.
func (v *ThreadView) notifyRead(messages []models.Message) {
	if v.notifier == nil {
		return
	}
	for _, msg := range messages {
		if msg.Seen || msg.Pending {
			continue
		}
		go func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := v.notifier.MarkRead(ctx, id); err != nil {
				v.logger.Warn("mark read failed: message=%s err=%v", id, err)
			}
		}(msg.ID)
	}
}

// deriveExpansion expands unread messages plus the newest one.
func deriveExpansion(messages []models.Message) models.ExpansionState {
	expansion := models.ExpansionState{}
	for _, msg := range messages {
		if !msg.Seen {
			expansion.Expand(msg.ID)
		}
	}
	if len(messages) > 0 {
		expansion.Expand(messages[len(messages)-1].ID)
	}
	return expansion
}

// participants collects the distinct sender addresses in thread order.
func participants(messages []models.Message) []string {
	seen := make(map[string]bool)
	var out []string
	for _, msg := range messages {
		if msg.From == "" || seen[msg.From] {
			continue
		}
		seen[msg.From] = true
		out = append(out, msg.From)
	}
	return out
}
