package mailapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"threadview/models"
	"threadview/sendgate"
	"threadview/utils"
)

// Config for the mail API client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// ImageProxyURL is the endpoint third-party image URLs are routed
	// through before a sanitized body reaches the viewer.
	ImageProxyURL string
}

// Client talks to the mail API: message submission, thread reads,
// read-state notifications, reputation lookups and attachment uploads.
type Client struct {
	baseURL    string
	apiKey     string
	proxyURL   string
	httpClient *http.Client
	logger     *utils.Logger
}

// NewClient creates a mail API client.
func NewClient(cfg Config, logger *utils.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = utils.Log
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		proxyURL: cfg.ImageProxyURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type submitRequest struct {
	From              string                        `json:"from"`
	To                string                        `json:"to"`
	Subject           string                        `json:"subject"`
	Body              string                        `json:"body"`
	Kind              models.ContentKind            `json:"kind"`
	HTMLBody          *string                       `json:"html_body"`
	ParentID          string                        `json:"parent_id,omitempty"`
	ThreadID          string                        `json:"thread_id,omitempty"`
	Attachments       []models.AttachmentDescriptor `json:"attachments,omitempty"`
	PowToken          string                        `json:"pow_token"`
	VerificationToken string                        `json:"verification_token"`
}

type submitResponse struct {
	Status string `json:"status"`
	Result struct {
		Success bool `json:"success"`
	} `json:"result"`
	RetryWithHigherDifficulty bool `json:"retryWithHigherDifficulty"`
}

// Submit issues one outbound submission request. Implements
// sendgate.Submitter: transport failures return an error, any HTTP
// response becomes a SubmitOutcome for the pipeline to interpret.
func (c *Client) Submit(ctx context.Context, from string, intent models.SendIntent, powToken, verificationToken string) (*sendgate.SubmitOutcome, error) {
	req := submitRequest{
		From:              from,
		To:                intent.To,
		Subject:           intent.Subject,
		Body:              intent.Body,
		Kind:              intent.Kind,
		ParentID:          intent.ParentID,
		ThreadID:          intent.ThreadID,
		Attachments:       intent.Attachments,
		PowToken:          powToken,
		VerificationToken: verificationToken,
	}
	if intent.Kind == models.KindHTML && intent.HTMLBody != "" {
		htmlBody := intent.HTMLBody
		req.HTMLBody = &htmlBody
	}

	var resp submitResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/v1/messages", req, &resp)
	if err != nil {
		return nil, err
	}
	return &sendgate.SubmitOutcome{
		StatusCode:                status,
		Status:                    resp.Status,
		Success:                   resp.Result.Success,
		RetryWithHigherDifficulty: resp.RetryWithHigherDifficulty,
	}, nil
}

// FetchThread returns all messages sharing a thread ID. Ordering is
// the caller's concern.
func (c *Client) FetchThread(ctx context.Context, threadID string) ([]models.Message, error) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	status, err := c.doJSON(ctx, http.MethodGet, "/v1/threads/"+url.PathEscape(threadID)+"/messages", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("thread fetch returned status %d", status)
	}
	return resp.Messages, nil
}

// MarkRead notifies the mail API that a message was displayed. Callers
// treat this as fire-and-forget.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	status, err := c.doJSON(ctx, http.MethodPost, "/v1/messages/"+url.PathEscape(messageID)+"/read", nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("mark read returned status %d", status)
	}
	return nil
}

// LookupReputation fetches the reputation score for a sender
// local-part. A null score comes back as nil.
func (c *Client) LookupReputation(ctx context.Context, localPart string) (*int, error) {
	var resp struct {
		IQ *int `json:"iq"`
	}
	status, err := c.doJSON(ctx, http.MethodGet, "/v1/iq/"+url.PathEscape(localPart), nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("reputation lookup returned status %d", status)
	}
	return resp.IQ, nil
}

// UploadAttachment uploads one staged attachment and returns its
// finalized descriptor.
func (c *Client) UploadAttachment(ctx context.Context, staged models.StagedAttachment) (models.AttachmentDescriptor, error) {
	var desc models.AttachmentDescriptor

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", staged.Filename)
	if err != nil {
		return desc, err
	}
	if _, err := part.Write(staged.Content); err != nil {
		return desc, err
	}
	if err := writer.Close(); err != nil {
		return desc, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/attachments", &buf)
	if err != nil {
		return desc, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return desc, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return desc, fmt.Errorf("attachment upload returned status %d", httpResp.StatusCode)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&desc); err != nil {
		return desc, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return desc, nil
}

// ProxyImageURL rewrites an image URL to load through the configured
// proxy. With no proxy configured the URL passes through unchanged.
func (c *Client) ProxyImageURL(raw string) string {
	if c.proxyURL == "" {
		return raw
	}
	return c.proxyURL + "?url=" + url.QueryEscape(raw)
}

// doJSON performs one JSON request/response cycle and returns the HTTP
// status code alongside any decode target.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	c.authorize(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer httpResp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil && err != io.EOF {
			return httpResp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return httpResp.StatusCode, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
