// Package restclient talks to the chat platform's REST API for the
// history and upload operations that do not ride the realtime socket.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chat-bridge/internal/models"
)

const defaultTimeout = 15 * time.Second

// Client is a thin typed wrapper over the platform's REST endpoints.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a client for the API rooted at baseURL. The token is
// sent as a bearer credential on every request.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
			if apiErr.Error != "" {
				return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
			}
			if apiErr.Message != "" {
				return fmt.Errorf("%s %s: %s", method, path, apiErr.Message)
			}
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// ListConversations fetches every conversation visible to the session,
// active and archived alike.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// GetMessages fetches one page of a conversation's history, already
// grouped by day with the platform's semantic labels.
func (c *Client) GetMessages(ctx context.Context, conversationID string, page int) ([]models.DayGroup, error) {
	if page < 1 {
		page = 1
	}
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages?page=" + strconv.Itoa(page)
	var resp struct {
		Groups []models.DayGroup `json:"groups"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// UploadFiles sends the files as one multipart request and returns the
// stored attachment records in the same order.
func (c *Client) UploadFiles(ctx context.Context, files []models.FileUpload) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	var resp struct {
		Attachments []models.Attachment `json:"attachments"`
	}
	if err := c.do(ctx, http.MethodPost, "/uploads", &buf, writer.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return resp.Attachments, nil
}
