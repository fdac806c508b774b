package bilibili

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/bili-feedgen/app/feed"
)

const (
	DefaultBaseURL   = "http://space.bilibili.com"
	submitVideosPath = "/ajax/member/getSubmitVideos"
)

// wireKeys maps the API's video fields to canonical record fields.
var wireKeys = map[string]string{
	"aid":         feed.FieldID,
	"title":       feed.FieldTitle,
	"author":      feed.FieldAuthor,
	"created":     feed.FieldCreatedAt,
	"pic":         feed.FieldThumbnailURL,
	"description": feed.FieldDescription,
	"length":      feed.FieldDuration,
}

// Fetcher is the capability the pipeline needs from the API.
type Fetcher interface {
	Fetch(ctx context.Context, memberID string, pageSize int) ([]feed.RawRecord, error)
}

var _ Fetcher = (*Client)(nil)

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	timeout    time.Duration
	limiter    *rate.Limiter
}

func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  opts.UserAgent,
		timeout:    opts.Timeout,
		limiter:    limiter,
	}
}

// submitVideosResponse keeps the shape-dependent parts raw: a body that is
// valid JSON but not shaped like a video listing counts as no uploads.
type submitVideosResponse struct {
	Code    json.RawMessage `json:"code"`
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type submitVideosData struct {
	VList json.RawMessage `json:"vlist"`
}

// Fetch returns the member's latest uploads, newest first. A response that
// decodes but carries no video list yields an empty slice.
func (c *Client) Fetch(ctx context.Context, memberID string, pageSize int) ([]feed.RawRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	query := url.Values{}
	query.Set("mid", memberID)
	query.Set("pagesize", strconv.Itoa(pageSize))
	endpoint := c.baseURL + submitVideosPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if !json.Valid(data) {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: invalid JSON")}
	}

	var payload submitVideosResponse
	if err := decodeNumbers(data, &payload); err != nil {
		slog.Debug("API response is not an object", "member_id", memberID, "error", err)
		return []feed.RawRecord{}, nil
	}

	if code, ok := responseCode(payload.Code); ok && code != 0 {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Code: code, Message: responseMessage(payload.Message)}
	}

	videos, ok := videoList(payload.Data)
	if !ok {
		slog.Debug("API response has no video list", "member_id", memberID)
		return []feed.RawRecord{}, nil
	}

	records := make([]feed.RawRecord, 0, len(videos))
	for _, video := range videos {
		records = append(records, toRecord(video))
	}

	slog.Debug("Fetched uploads", "member_id", memberID, "count", len(records))

	return records, nil
}

func decodeNumbers(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(v)
}

// responseCode reads an integral "code"; any other value is ignored.
func responseCode(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var code json.Number
	if err := decodeNumbers(raw, &code); err != nil {
		return 0, false
	}
	n, err := code.Int64()
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func responseMessage(raw json.RawMessage) string {
	var message string
	if err := json.Unmarshal(raw, &message); err != nil {
		return string(raw)
	}
	return message
}

// videoList extracts data.vlist. ok is false when either level is absent,
// null or of the wrong JSON type. Elements that are not objects become
// empty records, which the normalizer rejects as malformed.
func videoList(raw json.RawMessage) ([]map[string]any, bool) {
	var data submitVideosData
	if len(raw) == 0 || decodeNumbers(raw, &data) != nil || len(data.VList) == 0 {
		return nil, false
	}

	var elements []json.RawMessage
	if err := decodeNumbers(data.VList, &elements); err != nil || elements == nil {
		return nil, false
	}

	videos := make([]map[string]any, 0, len(elements))
	for _, element := range elements {
		var video map[string]any
		if err := decodeNumbers(element, &video); err != nil || video == nil {
			video = map[string]any{}
		}
		videos = append(videos, video)
	}
	return videos, true
}

func toRecord(video map[string]any) feed.RawRecord {
	record := make(feed.RawRecord, len(wireKeys))
	for wire, canonical := range wireKeys {
		if value, ok := video[wire]; ok {
			record[canonical] = value
		}
	}
	return record
}
