package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultSendTimeout = 30 * time.Second

type sendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendEmailResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// HTTPSender delivers emails through the sending provider. The idempotency key
// travels as a header so a retried request after a timeout that actually
// delivered is deduplicated provider-side.
type HTTPSender struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPSender(endpoint string, apiKey string) (*HTTPSender, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)
	if strings.TrimSpace(apiKey) != "" {
		client.SetAuthToken(apiKey)
	}

	return NewHTTPSenderWithClient(endpoint, client)
}

func NewHTTPSenderWithClient(endpoint string, client *resty.Client) (*HTTPSender, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("send endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid send endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPSender{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (s *HTTPSender) SendEmail(ctx context.Context, req SendRequest) (*SendResult, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("sender is not initialized")
	}
	if strings.TrimSpace(req.Recipient) == "" {
		return nil, &AdapterError{Message: "recipient is required"}
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, &AdapterError{Message: "idempotency key is required"}
	}

	var parsed sendEmailResponse
	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotency-Key", req.IdempotencyKey).
		SetBody(sendEmailRequest{
			To:      req.Recipient,
			Subject: req.Subject,
			Body:    req.Body,
		}).
		SetResult(&parsed).
		Post(s.endpoint)
	if err != nil {
		return nil, &AdapterError{
			Message:   "send request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResult{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  parsed.ID,
		}, nil
	}

	return nil, &AdapterError{
		StatusCode: statusCode,
		Message:    statusErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}
