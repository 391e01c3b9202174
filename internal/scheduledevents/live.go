package scheduledevents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Проверка, что LiveSource удовлетворяет порту EventSource.
var _ ports.EventSource = (*LiveSource)(nil)

const (
	DefaultEndpoint   = "http://169.254.169.254/metadata"
	DefaultAPIVersion = "2020-07-01"

	// maxBodyBytes — документ событий маленький; больше — значит что-то не то.
	maxBodyBytes = 1 << 20
)

// LiveConfig — параметры опроса instance metadata service.
type LiveConfig struct {
	Endpoint       string
	APIVersion     string
	RequestTimeout time.Duration
}

// LiveSource — один HTTP-запрос к metadata-эндпоинту на каждый Fetch.
type LiveSource struct {
	client     *http.Client
	url        string
	log        ports.Logger
	reqTimeout time.Duration
}

// NewLiveSource — конструктор. Транспорт обёрнут otelhttp, чтобы каждый опрос был клиентским спаном.
func NewLiveSource(cfg LiveConfig, log ports.Logger) (*LiveSource, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	u, err := url.Parse(endpoint + "/scheduledevents")
	if err != nil {
		return nil, fmt.Errorf("parse metadata endpoint: %w", err)
	}
	q := u.Query()
	q.Set("api-version", apiVersion)
	u.RawQuery = q.Encode()

	return &LiveSource{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		url:        u.String(),
		log:        log,
		reqTimeout: timeout,
	}, nil
}

// Fetch — GET scheduledevents. 404/пустое тело — событий нет (nil, nil).
// Любой другой сбой — ErrTransientFetch; отмена вызывающего контекста возвращается как есть.
func (s *LiveSource) Fetch(ctx context.Context) (*domain.ScheduledEventsSnapshot, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.reqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransientFetch, err)
	}
	// Без этого заголовка IMDS отвечает 400.
	req.Header.Set("Metadata", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrTransientFetch, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: unexpected status %d: %s", ErrTransientFetch, resp.StatusCode, truncate(body, 256))
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrTransientFetch, err)
	}
	return doc.toSnapshot(), nil
}

// Acknowledge — подтвердить событие (StartRequests), чтобы платформа не ждала NotBefore.
func (s *LiveSource) Acknowledge(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is empty")
	}
	payload, err := json.Marshal(map[string]any{
		"StartRequests": []map[string]string{{"EventId": eventID}},
	})
	if err != nil {
		return fmt.Errorf("marshal ack: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.reqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build ack request: %w", err)
	}
	req.Header.Set("Metadata", "true")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ack event %s: %w", eventID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("ack event %s: status %d: %s", eventID, resp.StatusCode, string(body))
	}

	s.log.Infof(ctx, "scheduled event acknowledged event_id=%s", eventID)
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
