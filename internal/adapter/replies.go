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

const defaultReplyTimeout = 15 * time.Second

type replyResponse struct {
	Replied bool `json:"replied"`
}

// HTTPReplyObserver asks the mailbox service whether a lead has replied.
type HTTPReplyObserver struct {
	client  *resty.Client
	baseURL string
}

func NewHTTPReplyObserver(baseURL string, apiKey string) (*HTTPReplyObserver, error) {
	client := resty.New()
	client.SetTimeout(defaultReplyTimeout)
	client.SetRetryCount(0)
	if strings.TrimSpace(apiKey) != "" {
		client.SetAuthToken(apiKey)
	}

	return NewHTTPReplyObserverWithClient(baseURL, client)
}

func NewHTTPReplyObserverWithClient(baseURL string, client *resty.Client) (*HTTPReplyObserver, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("reply base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid reply base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultReplyTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPReplyObserver{
		client:  client,
		baseURL: trimmed,
	}, nil
}

func (o *HTTPReplyObserver) ObserveReply(ctx context.Context, leadID string) (bool, error) {
	if o == nil || o.client == nil {
		return false, fmt.Errorf("reply observer is not initialized")
	}
	if strings.TrimSpace(leadID) == "" {
		return false, &AdapterError{Message: "lead id is required"}
	}

	var parsed replyResponse
	response, err := o.client.R().
		SetContext(ctx).
		SetResult(&parsed).
		Get(fmt.Sprintf("%s/replies/%s", o.baseURL, url.PathEscape(leadID)))
	if err != nil {
		return false, &AdapterError{
			Message:   "reply check failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return false, &AdapterError{
			StatusCode: statusCode,
			Message:    statusErrorMessage(statusCode, strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	return parsed.Replied, nil
}
