// Package client implements the REST client for the survey backend.
//
// The backend contract is small but loose: GET /questions may return a JSON
// array, a single object, or an empty body, and every request is identified
// by an X-USER-ID header. All failures are converted to the error kinds in
// errors.go before they leave this package; callers never see a raw
// transport error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dadok-care/survey-engine/internal/models"
)

const (
	questionsPath = "/questions"

	// fallbackUserID keeps question retrieval working when identity
	// resolution produced nothing; the backend treats it as the demo user.
	fallbackUserID = "1"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// defaultNumericUserID backs the numeric userId field of the POST body
	// when the resolved identity is not numeric.
	defaultNumericUserID int64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithDefaultNumericUserID(id int64) Option {
	return func(c *Client) {
		c.defaultNumericUserID = id
	}
}

func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:              strings.TrimRight(baseURL, "/"),
		httpClient:           &http.Client{Timeout: 15 * time.Second},
		logger:               logger,
		defaultNumericUserID: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchQuestions retrieves the question bank for a user. An empty userID
// falls back to the documented default rather than failing. An empty result
// is a valid outcome, not an error.
func (c *Client) FetchQuestions(ctx context.Context, userID string) ([]*models.Question, error) {
	if userID == "" {
		userID = fallbackUserID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+questionsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build questions request: %w", err)
	}
	c.setHeaders(req, userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrQuestionsNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.errorFromResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.wrapTransportError(err)
	}

	payloads, err := decodeQuestionPayloads(body)
	if err != nil {
		return nil, err
	}

	questions := make([]*models.Question, 0, len(payloads))
	for _, p := range payloads {
		q, err := p.ToQuestion()
		if err != nil {
			// Reject the malformed entry, keep the rest of the batch.
			c.logger.Warn("dropping malformed question from backend",
				"question_id", p.QuestionID,
				"response_type", p.ResponseType,
				"error", err)
			continue
		}
		questions = append(questions, q)
	}

	c.logger.Debug("fetched questions",
		"user_id", userID,
		"received", len(payloads),
		"accepted", len(questions))

	return questions, nil
}

// submitRequest is the wire shape of POST /questions. The backend keys the
// answer on the numeric userId in the body, not the header.
type submitRequest struct {
	Answer     string `json:"answer"`
	UserID     int64  `json:"userId"`
	QuestionID *uint  `json:"questionId"`
}

// SubmitAnswer records one answer with the backend. The answer is always a
// string on the wire regardless of its in-memory representation; the
// success body is not consumed beyond checking that it exists.
func (c *Client) SubmitAnswer(ctx context.Context, userID string, questionID *uint, answer string) error {
	if userID == "" {
		userID = fallbackUserID
	}

	payload := submitRequest{
		Answer:     answer,
		UserID:     c.numericUserID(userID),
		QuestionID: questionID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+questionsPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build answer request: %w", err)
	}
	c.setHeaders(req, userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp)
	}

	// Drain so the connection can be reused; the body's shape is not part
	// of the consumed contract.
	io.Copy(io.Discard, resp.Body)

	c.logger.Debug("answer submitted",
		"user_id", userID,
		"question_id", questionID)

	return nil
}

func (c *Client) setHeaders(req *http.Request, userID string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-USER-ID", userID)
}

func (c *Client) numericUserID(userID string) int64 {
	if id, err := strconv.ParseInt(userID, 10, 64); err == nil {
		return id
	}
	return c.defaultNumericUserID
}

// wrapTransportError remaps connection-level failures to a single
// user-legible "server unreachable" error that names the base URL.
// Cancellation is passed through so callers can tell a dead backend from
// their own context expiring.
func (c *Client) wrapTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &UnreachableError{BaseURL: c.baseURL, Err: err}
	}

	// Defensive substring match for errors surfaced by intermediaries.
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "Failed to fetch") {
		return &UnreachableError{BaseURL: c.baseURL, Err: err}
	}

	return err
}

// errorFromResponse converts a non-2xx response into an APIError when the
// body carries a structured message, otherwise an HTTPError with the status
// and reason phrase.
func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var structured struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		msg := structured.Message
		if msg == "" {
			msg = structured.Error
		}
		if msg != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: msg}
		}
	}

	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	return &HTTPError{StatusCode: resp.StatusCode, Reason: reason}
}

// decodeQuestionPayloads accepts the three legal body shapes: a JSON array,
// a single object, or an empty/absent body. Anything else is a ParseError.
func decodeQuestionPayloads(body []byte) ([]models.QuestionPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var payloads []models.QuestionPayload
	if err := json.Unmarshal(trimmed, &payloads); err == nil {
		return payloads, nil
	}

	var single models.QuestionPayload
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, &ParseError{Err: err}
	}
	return []models.QuestionPayload{single}, nil
}
