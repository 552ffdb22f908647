package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
	"github.com/jazbelrose/mylg-chat/tools/errs"
)

// Client talks to the message REST API: history reads plus the delete, edit
// and file-cleanup endpoints. It satisfies both sync.HistoryAPI and
// sync.RestAPI.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx response from the message API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("message api: status %d: %s", e.Status, e.Body)
}

// Messages fetches the confirmed history for a conversation. A 429 maps to
// the rate-limit code so the caller's backoff kicks in; every other failure
// maps to the history-failed code.
func (c *Client) Messages(ctx context.Context, conversationID string) ([]model.Message, error) {
	u := c.base + "/messages?conversationId=" + url.QueryEscape(conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.ErrHistoryFailed.WithDetail(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errs.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.ErrHistoryFailed.WithDetail(readErrBody(resp))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.ErrHistoryFailed.WithDetail(err.Error())
	}
	return decodeMessages(raw)
}

// decodeMessages accepts either a bare array or an {"Items": [...]} wrapper;
// the API has shipped both shapes.
func decodeMessages(raw []byte) ([]model.Message, error) {
	var list []model.Message
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Items []model.Message `json:"Items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, errs.ErrHistoryFailed.WithDetail(err.Error())
	}
	return wrapped.Items, nil
}

func (c *Client) DeleteMessage(ctx context.Context, conversationID, serverID string) error {
	u := c.base + "/messages/" + url.PathEscape(serverID) +
		"?conversationId=" + url.QueryEscape(conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	return c.do(req)
}

func (c *Client) EditMessage(ctx context.Context, conversationID, serverID, text string, editedAt int64) error {
	body, err := json.Marshal(map[string]any{
		"conversationId": conversationID,
		"text":           text,
		"editedAt":       editedAt,
	})
	if err != nil {
		return err
	}
	u := c.base + "/messages/" + url.PathEscape(serverID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// DeleteFiles asks the API to drop uploaded attachment objects; invoked on
// message delete before the record itself is removed server-side.
func (c *Client) DeleteFiles(ctx context.Context, conversationID string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string]any{
		"conversationId": conversationID,
		"urls":           urls,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/files/delete", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: readErrBody(resp)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func readErrBody(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return string(raw)
}
