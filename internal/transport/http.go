// Package transport talks to the Snipshift conversation/message REST API and
// normalizes its wire shapes into the internal model. Endpoint paths and
// request verbs are hidden from the rest of the messaging layer.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SgtClickClack/snipshift-sub007/internal/model"
)

// API is the capability set the offline queue and the polling synchronizer
// depend on. Tests substitute a fake implementation without network I/O.
type API interface {
	// CreateOrGetConversation returns the conversation ID for the pair
	// (current user, otherUserID). Idempotency is enforced server-side.
	CreateOrGetConversation(ctx context.Context, otherUserID, jobID string) (string, error)

	// FetchConversations returns the user's conversations ordered by most
	// recent activity descending. Auth/not-found responses yield an empty
	// list, not an error.
	FetchConversations(ctx context.Context, currentUserID string) ([]model.Conversation, error)

	// FetchMessages returns a conversation's messages oldest to newest, with
	// the same tolerant empty-list behavior as FetchConversations.
	FetchMessages(ctx context.Context, conversationID string) ([]model.Message, error)

	// SendMessage posts a message and returns the persisted record. Any
	// HTTP-level failure is returned; the offline queue classifies it.
	SendMessage(ctx context.Context, conversationID, content string) (*model.Message, error)

	// MarkRead marks a conversation read. Best-effort: failures are logged
	// and swallowed, never returned.
	MarkRead(ctx context.Context, conversationID string) error
}

const defaultTimeout = 30 * time.Second

// Client is the HTTP implementation of API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Use this to supply a
// cookie jar carrying the host's session.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAuthToken sets a bearer token sent on every request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a transport client for the given API base URL.
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire shapes

type participantDTO struct {
	ID string `json:"id"`
}

type messageDTO struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Content        string `json:"content"`
	CreatedAt      string `json:"createdAt"`
	Read           bool   `json:"read"`
}

type conversationDTO struct {
	ID               string          `json:"id"`
	OtherParticipant *participantDTO `json:"otherParticipant"`
	LatestMessage    *messageDTO     `json:"latestMessage"`
	LastMessageAt    string          `json:"lastMessageAt"`
	CreatedAt        string          `json:"createdAt"`
}

func (c *Client) CreateOrGetConversation(ctx context.Context, otherUserID, jobID string) (string, error) {
	body := map[string]string{"participant2Id": otherUserID}
	if jobID != "" {
		body["jobId"] = jobID
	}
	data, status, err := c.doRequest(ctx, http.MethodPost, "/api/conversations", body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &StatusError{StatusCode: status, Body: string(data)}
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode conversation response: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) FetchConversations(ctx context.Context, currentUserID string) ([]model.Conversation, error) {
	data, status, err := c.doRequest(ctx, http.MethodGet, "/api/conversations", nil)
	if err != nil {
		return nil, err
	}
	if expectedEmpty(status) {
		c.logger.Debug("conversation list not available yet", zap.Int("status", status))
		return []model.Conversation{}, nil
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{StatusCode: status, Body: string(data)}
	}

	var dtos []conversationDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("decode conversation list: %w", err)
	}

	convos := make([]model.Conversation, 0, len(dtos))
	for _, d := range dtos {
		convos = append(convos, normalizeConversation(&d, currentUserID))
	}
	sort.SliceStable(convos, func(i, j int) bool {
		return activityTime(&convos[i]).After(activityTime(&convos[j]))
	})
	return convos, nil
}

func (c *Client) FetchMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	data, status, err := c.doRequest(ctx, http.MethodGet, "/api/conversations/"+conversationID, nil)
	if err != nil {
		return nil, err
	}
	if expectedEmpty(status) {
		c.logger.Debug("messages not available yet",
			zap.String("conversation_id", conversationID), zap.Int("status", status))
		return []model.Message{}, nil
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{StatusCode: status, Body: string(data)}
	}

	var resp struct {
		Messages []messageDTO `json:"messages"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode message list: %w", err)
	}

	msgs := make([]model.Message, 0, len(resp.Messages))
	for _, d := range resp.Messages {
		msgs = append(msgs, normalizeMessage(&d, conversationID))
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*model.Message, error) {
	body := map[string]string{"conversationId": conversationID, "content": content}
	data, status, err := c.doRequest(ctx, http.MethodPost, "/api/messages", body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{StatusCode: status, Body: string(data)}
	}
	var d messageDTO
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode sent message: %w", err)
	}
	msg := normalizeMessage(&d, conversationID)
	return &msg, nil
}

func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	data, status, err := c.doRequest(ctx, http.MethodPatch, "/api/conversations/"+conversationID+"/read", map[string]string{})
	if err != nil {
		c.logger.Warn("mark read failed", zap.String("conversation_id", conversationID), zap.Error(err))
		return nil
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("mark read rejected",
			zap.String("conversation_id", conversationID),
			zap.Int("status", status), zap.String("body", string(data)))
	}
	return nil
}

// Ping probes backend reachability. Any response from the server counts as
// online, auth failures included; only network-class failures count against.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.doRequest(ctx, http.MethodGet, "/api/conversations", nil)
	return err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// normalization

func normalizeConversation(d *conversationDTO, currentUserID string) model.Conversation {
	conv := model.Conversation{
		ID:            d.ID,
		LastMessageAt: parseWireTime(d.LastMessageAt),
		CreatedAt:     parseWireTime(d.CreatedAt),
	}
	other := ""
	if d.OtherParticipant != nil {
		other = d.OtherParticipant.ID
	}
	conv.Participants = [2]string{currentUserID, other}
	if d.LatestMessage != nil {
		conv.LastMessage = &model.MessageSummary{
			ID:        d.LatestMessage.ID,
			SenderID:  d.LatestMessage.SenderID,
			Content:   d.LatestMessage.Content,
			Timestamp: parseWireTime(d.LatestMessage.CreatedAt),
		}
	}
	return conv
}

func normalizeMessage(d *messageDTO, fallbackConversationID string) model.Message {
	chatID := d.ConversationID
	if chatID == "" {
		chatID = fallbackConversationID
	}
	return model.Message{
		ID:        d.ID,
		ChatID:    chatID,
		SenderID:  d.SenderID,
		Content:   d.Content,
		Timestamp: parseWireTime(d.CreatedAt),
		Read:      d.Read,
	}
}

func activityTime(c *model.Conversation) time.Time {
	if !c.LastMessageAt.IsZero() {
		return c.LastMessageAt
	}
	return c.CreatedAt
}

func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
