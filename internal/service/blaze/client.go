package blaze

import (
	"context"
	"fmt"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	xhttp "SignalPull/pkg/http"
)

// Client implements a ResultFeed backed by the results edge function.
type Client struct {
	url    string
	client *xhttp.Client
}

// New creates a new ResultFeed. timeout bounds a single request.
func New(url string, timeout time.Duration) drepo.ResultFeed {
	return &Client{
		url:    url,
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// Fetch issues one GET and returns the raw body. Any transport error or
// non-2xx status is reported as ErrFeedUnavailable.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.url,
		Headers: map[string]string{"Accept": "application/json"},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFeedUnavailable, err)
	}
	return body, nil
}
