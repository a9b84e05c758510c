package sendgate

import "sync"

// WidgetSource adapts the human-verification widget to the
// VerificationSource contract. The widget completes a challenge in the
// user's client and posts the resulting token to this process; Offer
// feeds it to whatever send attempt is waiting.
type WidgetSource struct {
	mu     sync.Mutex
	tokens chan string
}

// NewWidgetSource creates an empty source.
func NewWidgetSource() *WidgetSource {
	return &WidgetSource{
		tokens: make(chan string, 1),
	}
}

// Offer hands a freshly issued token to a waiting send attempt. A
// token nobody collects is replaced by the next one; the widget only
// ever has one valid token outstanding.
func (w *WidgetSource) Offer(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.tokens <- token:
	default:
		// Stale token still queued: drop it in favour of the new one.
		select {
		case <-w.tokens:
		default:
		}
		w.tokens <- token
	}
}

// Token returns the channel a send attempt waits on.
func (w *WidgetSource) Token() <-chan string {
	return w.tokens
}

// Reset discards any queued token.
func (w *WidgetSource) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.tokens:
	default:
	}
}
