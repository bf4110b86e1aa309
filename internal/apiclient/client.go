package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const (
	// EnvAPIBase — глобальный источник базового URL, если он не передан явно.
	EnvAPIBase = "STOREFRONT_API_BASE"

	defaultTimeout     = 10 * time.Second
	maxErrorMessageLen = 512
)

// RequestOptions описывает один запрос к API.
type RequestOptions struct {
	// Method по умолчанию GET.
	Method  string
	Query   url.Values
	Body    any
	Headers map[string]string
	// Endpoint — метка для метрик; по умолчанию "METHOD path".
	Endpoint string
}

// Client выполняет HTTP-запросы к API витрины относительно базового URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	logger     *log.Entry
	metrics    *metrics.Metrics
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет транспорт (тесты, кастомные таймауты).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout задаёт таймаут транспорта.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithLogger задаёт logger клиента.
func WithLogger(logger *log.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics подключает метрики запросов.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHeader добавляет заголовок ко всем запросам.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// New создаёт клиента. Пустой baseURL берётся из STOREFRONT_API_BASE;
// если и там пусто — возвращается domain.ErrConfiguration.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv(EnvAPIBase))
	}
	if baseURL == "" {
		return nil, domain.ErrConfiguration
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": version.UserAgent(),
		},
		logger: log.WithField("component", "api-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL возвращает базовый URL клиента.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do выполняет запрос и декодирует JSON-ответ в T.
// Путь склеивается с базовым URL как есть, нормализация слэшей — на вызывающем.
func Do[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (T, error) {
	var out T
	if err := c.do(ctx, path, opts, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, path string, opts RequestOptions, out any) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = method + " " + path
	}

	target := c.baseURL + path
	if len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + opts.Query.Encode()
	}

	body, contentType, err := encodeBody(method, opts.Body)
	if err != nil {
		return &domain.RequestError{Method: method, URL: target, Message: "encode request body", Kind: domain.ErrInvalidRequest, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &domain.RequestError{Method: method, URL: target, Message: err.Error(), Kind: domain.ErrInvalidRequest, Err: err}
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	err = c.send(req, out)
	c.metrics.ObserveRequest(endpoint, time.Since(started), err)

	logger := c.logger.WithFields(log.Fields{
		"method":      method,
		"endpoint":    endpoint,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	if err != nil {
		logger.WithError(err).Warn("api request failed")
		return err
	}
	logger.Debug("api request completed")
	return nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.RequestError{Method: req.Method, URL: req.URL.String(), Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.RequestError{Method: req.Method, URL: req.URL.String(), Message: "read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.RequestError{
			Method:  req.Method,
			URL:     req.URL.String(),
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, payload),
		}
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &domain.RequestError{
			Method:  req.Method,
			URL:     req.URL.String(),
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("decode response: %v", err),
			Err:     err,
		}
	}
	return nil
}

func encodeBody(method string, body any) (io.Reader, string, error) {
	if body == nil || method == http.MethodGet || method == http.MethodHead {
		return nil, "", nil
	}

	switch b := body.(type) {
	case []byte:
		return bytes.NewReader(b), "application/octet-stream", nil
	case string:
		return strings.NewReader(b), "text/plain; charset=utf-8", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	case io.Reader:
		return b, "", nil
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}

func errorMessage(status int, payload []byte) string {
	msg := strings.TrimSpace(string(payload))
	if msg == "" {
		return http.StatusText(status)
	}
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
