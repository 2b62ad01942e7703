package ranapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/xela07ax/ran-copilot/internal/domain"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultChatTimeout = 30 * time.Second

	DefaultHours = 24
	DefaultLimit = 100

	// Лимит на тело ответа, чтобы кривой бэкенд не съел память.
	maxBodySize = 8 << 20
	chunkSize   = 4 << 10
)

// Client - типизированный клиент REST API бэкенда RAN.
// Повторов и бэкоффа нет: решение о фоллбэке принимает вызывающий.
type Client struct {
	baseURL     string
	http        *http.Client
	timeout     time.Duration
	chatTimeout time.Duration
	logger      *zap.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithChatTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.chatTimeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New создает клиент для базового адреса вида http://host:port.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{},
		timeout:     DefaultTimeout,
		chatTimeout: DefaultChatTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("ranapi")
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// DashboardKPIs - GET /api/dashboard/kpis
func (c *Client) DashboardKPIs(ctx context.Context) (domain.DashboardKPIs, error) {
	var out domain.DashboardKPIs
	err := c.getJSON(ctx, "/api/dashboard/kpis", nil, &out)
	return out, err
}

// CellStatus - GET /api/cells/status
func (c *Client) CellStatus(ctx context.Context) ([]domain.CellStatus, error) {
	var out []domain.CellStatus
	if err := c.getJSON(ctx, "/api/cells/status", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TimeSeries - GET /api/analytics/timeseries?hours=N. hours<=0 означает 24.
func (c *Client) TimeSeries(ctx context.Context, hours int) ([]domain.TimeSeriesData, error) {
	if hours <= 0 {
		hours = DefaultHours
	}
	q := url.Values{}
	q.Set("hours", strconv.Itoa(hours))

	var out []domain.TimeSeriesData
	if err := c.getJSON(ctx, "/api/analytics/timeseries", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CellPerformance - GET /api/cells/performance?limit=N. limit<=0 означает 100.
func (c *Client) CellPerformance(ctx context.Context, limit int) ([]domain.CellPerformance, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var out []domain.CellPerformance
	if err := c.getJSON(ctx, "/api/cells/performance", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// KPIHeatmap - GET /api/kpi/heatmap?kpi_name=X, ответ в GeoJSON.
func (c *Client) KPIHeatmap(ctx context.Context, kpiName string) (*geojson.FeatureCollection, error) {
	if strings.TrimSpace(kpiName) == "" {
		return nil, fmt.Errorf("ranapi: kpi name is required")
	}
	q := url.Values{}
	q.Set("kpi_name", kpiName)

	body, _, err := c.do(ctx, c.timeout, http.MethodGet, "/api/kpi/heatmap", q, nil)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("ranapi: /api/kpi/heatmap: decode: %w", err)
	}
	return fc, nil
}

// Ping - GET /ping
func (c *Client) Ping(ctx context.Context) (domain.Health, error) {
	var out domain.Health
	err := c.getJSON(ctx, "/ping", nil, &out)
	return out, err
}

type chatRequest struct {
	Input chatInput `json:"input"`
}

type chatInput struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Message domain.ChatMessage `json:"message"`
}

// Chat - POST /api/chat, один синхронный ответ агента.
func (c *Client) Chat(ctx context.Context, prompt string) (domain.ChatMessage, error) {
	payload, err := json.Marshal(chatRequest{Input: chatInput{Prompt: prompt}})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	body, _, err := c.do(ctx, c.chatTimeout, http.MethodPost, "/api/chat", nil, payload)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("ranapi: /api/chat: decode: %w", err)
	}
	return resp.Message, nil
}

// InvokeRequest - вызов управляемого агента с продолжением сессии.
type InvokeRequest struct {
	Runtime      string
	Prompt       string
	SessionID    string
	SessionToken string
}

type invokeWire struct {
	Input        chatInput `json:"input"`
	SessionID    string    `json:"session_id"`
	SessionToken string    `json:"session_token,omitempty"`
}

// InvokeResponse - склеенное из чанков тело и метаданные сессии.
type InvokeResponse struct {
	Body         []byte
	Chunks       int
	SessionToken string
	ContentType  string
}

// InvokeAgent - POST /api/agent/invoke. Тело читается потоком и склеивается целиком;
// разбор формата остается за вызывающим.
func (c *Client) InvokeAgent(ctx context.Context, req InvokeRequest) (*InvokeResponse, error) {
	const path = "/api/agent/invoke"

	payload, err := json.Marshal(invokeWire{
		Input:        chatInput{Prompt: req.Prompt},
		SessionID:    req.SessionID,
		SessionToken: req.SessionToken,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.chatTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/octet-stream, application/json, text/plain")
	if req.Runtime != "" {
		httpReq.Header.Set("X-Agent-Runtime", req.Runtime)
	}
	httpReq.Header.Set("X-Session-Id", req.SessionID)

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ranapi: %s: %w", path, err)
	}
	defer res.Body.Close()

	if err := checkStatus(path, res); err != nil {
		return nil, err
	}

	out := &InvokeResponse{
		SessionToken: res.Header.Get("X-Session-Token"),
		ContentType:  res.Header.Get("Content-Type"),
	}

	// Склейка потока: читаем фиксированными кусками до EOF
	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	src := io.LimitReader(res.Body, maxBodySize)
	for {
		n, rErr := src.Read(chunk)
		if n > 0 {
			out.Chunks++
			buf.Write(chunk[:n])
		}
		if rErr == io.EOF {
			break
		}
		if rErr != nil {
			return nil, fmt.Errorf("ranapi: %s: read stream: %w", path, rErr)
		}
	}
	out.Body = buf.Bytes()

	c.logger.Debug("agent stream reassembled",
		zap.Int("chunks", out.Chunks),
		zap.Int("bytes", len(out.Body)))

	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	body, _, err := c.do(ctx, c.timeout, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("ranapi: %s: decode: %w", path, err)
	}
	return nil
}

// do выполняет один запрос с собственным таймаутом и возвращает прочитанное тело.
func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, q url.Values, payload []byte) ([]byte, http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("path", path), zap.Error(err))
		return nil, nil, fmt.Errorf("ranapi: %s: %w", path, err)
	}
	defer res.Body.Close()

	if err := checkStatus(path, res); err != nil {
		return nil, res.Header, err
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, res.Header, fmt.Errorf("ranapi: %s: read body: %w", path, err)
	}

	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(start)))

	return data, res.Header, nil
}

func checkStatus(path string, res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	return &StatusError{
		Path:   path,
		Code:   res.StatusCode,
		Status: res.Status,
		Body:   strings.TrimSpace(string(b)),
	}
}
