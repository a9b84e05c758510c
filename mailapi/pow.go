package mailapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"threadview/utils"
)

// PowConfig configures the proof-of-work token service client.
type PowConfig struct {
	BaseURL string
	APIKey  string

	// MinDifficultyBits is the starting difficulty requested from the
	// service; the send pipeline raises it after a difficulty
	// rejection.
	MinDifficultyBits int
}

// PowClient acquires proof-of-work tokens from the external token
// service. The computation itself happens service-side; this client
// only implements the acquisition protocol. Implements
// sendgate.ProofOfWorkProvider.
type PowClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *utils.Logger

	mu      sync.Mutex
	minBits int

	// background requests stop when the client is cleaned up.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPowClient creates a proof-of-work service client.
func NewPowClient(cfg PowConfig, logger *utils.Logger) *PowClient {
	if logger == nil {
		logger = utils.Log
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PowClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			// Token generation may take arbitrary time; the request
			// lives until the caller's context ends.
			Timeout: 0,
		},
		logger:  logger,
		minBits: cfg.MinDifficultyBits,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// GetToken blocks until the service hands out a token for the
// recipient at the current minimum difficulty, or ctx ends.
func (p *PowClient) GetToken(ctx context.Context, recipient string) (string, error) {
	p.mu.Lock()
	bits := p.minBits
	p.mu.Unlock()

	endpoint := fmt.Sprintf("%s/v1/token?recipient=%s&min_bits=%d",
		p.baseURL, url.QueryEscape(recipient), bits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token service returned status %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("token service returned an empty token")
	}
	return body.Token, nil
}

// EnsurePoolFilled asks the service to pre-warm its token pool for a
// recipient. Fire-and-forget: failures are logged, never surfaced.
func (p *PowClient) EnsurePoolFilled(recipient string) {
	ctx, cancel := context.WithTimeout(p.ctx, 10*time.Second)
	defer cancel()

	p.mu.Lock()
	bits := p.minBits
	p.mu.Unlock()

	form := url.Values{
		"recipient": {recipient},
		"min_bits":  {strconv.Itoa(bits)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/pool", nil)
	if err != nil {
		return
	}
	req.URL.RawQuery = form.Encode()
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("pow pool pre-fill failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		p.logger.Warn("pow pool pre-fill returned status %d", resp.StatusCode)
	}
}

// SetMinimumDifficulty raises (or lowers) the difficulty requested on
// subsequent token acquisitions.
func (p *PowClient) SetMinimumDifficulty(bits int) {
	p.mu.Lock()
	p.minBits = bits
	p.mu.Unlock()
}

// Cleanup cancels outstanding background requests.
func (p *PowClient) Cleanup() {
	p.cancel()
}
