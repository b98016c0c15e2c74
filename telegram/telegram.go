// Package telegram is a minimal typed client for the Telegram Bot API,
// covering the calls the catalog needs: the long-poll update feed, file
// resolution and download streaming, and message send/delete/copy.
//
// Every call returns either a *TransportError (the request never produced a
// well-formed API envelope) or a *UpstreamError (the API answered ok=false);
// callers discriminate with errors.As.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the production bot API origin.
const DefaultBaseURL = "https://api.telegram.org"

// maxResponseBody caps RPC envelope reads (downloads are streamed and
// not subject to this limit).
const maxResponseBody int64 = 10 << 20

const defaultTimeout = 60 * time.Second

// Client calls the bot API on behalf of one bot token.
type Client struct {
	token   string
	baseURL string
	rpc     *http.Client
	stream  *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API origin. Used by tests to point the client
// at a local fake.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client used for RPC calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.rpc = h }
}

// New creates a Client for the given bot token.
//
// RPC calls share one HTTP client with a 60 s overall timeout, which leaves
// headroom over the long-poll wait. File downloads use a separate client
// without an overall timeout so large transfers are bounded only by the
// caller's context.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		rpc:     &http.Client{Timeout: defaultTimeout},
		stream:  &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetUpdates long-polls the update feed starting at offset, waiting up to
// timeout seconds for new events. A zero offset omits the parameter so the
// feed decides where to start. Returns an empty slice when the wait expires
// with nothing new.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(timeout))
	if offset > 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}
	var updates []Update
	if err := c.get(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// GetFile resolves a file handle into a short-lived download path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	params := url.Values{}
	params.Set("file_id", fileID)
	var f File
	if err := c.get(ctx, "getFile", params, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FileStream opens the download for a path returned by GetFile. The caller
// owns the returned body. Size is -1 when the server does not announce a
// length. The stream is single-pass; it cannot be restarted.
func (c *Client) FileStream(ctx context.Context, filePath string) (io.ReadCloser, int64, error) {
	u := c.baseURL + "/file/bot" + c.token + "/" + filePath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, &TransportError{Method: "fileStream", Err: err}
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Method: "fileStream", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, &UpstreamError{Method: "fileStream", Code: resp.StatusCode, Description: "file download refused"}
	}
	return resp.Body, resp.ContentLength, nil
}

// SendMessage posts a plain-text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{"chat_id": chatID, "text": text}
	return c.post(ctx, "sendMessage", payload, nil)
}

// DeleteMessage removes a message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	payload := map[string]any{"chat_id": chatID, "message_id": messageID}
	return c.post(ctx, "deleteMessage", payload, nil)
}

// CopyMessage copies a message into another chat without a forward header
// and returns the id of the copy. Copying fails with an UpstreamError when
// the source message no longer exists, which is what the cleanup sweeper
// relies on to probe for silent deletions.
func (c *Client) CopyMessage(ctx context.Context, toChatID, fromChatID, messageID int64) (int64, error) {
	payload := map[string]any{
		"chat_id":      toChatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}
	var result struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.post(ctx, "copyMessage", payload, &result); err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// --- RPC plumbing ---

// apiResponse is the envelope every bot API method answers with.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out any) error {
	u := c.methodURL(method)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	return c.do(req, method, out)
}

func (c *Client) post(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.rpc.Do(req)
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}

	// The API reports errors inside the envelope with a matching non-2xx
	// status, so the envelope is parsed regardless of status code.
	var env apiResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return &TransportError{Method: method, Err: fmt.Errorf("decode envelope (status %d): %w", resp.StatusCode, err)}
	}
	if !env.OK {
		code := env.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &UpstreamError{Method: method, Code: code, Description: env.Description}
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return &TransportError{Method: method, Err: fmt.Errorf("decode result: %w", err)}
		}
	}
	return nil
}
