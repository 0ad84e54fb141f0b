package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"datalab-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("fetchers/overpass")

const DefaultUrl = "https://overpass-api.de/api/interpreter"

// Overpass throttles aggressively, a browser-looking agent and patient
// retries are what keeps the yearly loop alive.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

type Client struct {
	Url  string
	Http *resty.Client
}

func NewClient(url string, timeout time.Duration, retryWait time.Duration) *Client {
	if url == "" {
		url = DefaultUrl
	}
	if timeout == 0 {
		timeout = time.Second * 180
	}
	if retryWait == 0 {
		retryWait = time.Second * 5
	}
	return &Client{
		Url: url,
		Http: restyutil.NewClient("overpass", restyutil.Options{
			UserAgent: browserUserAgent,
			Timeout:   timeout,
			Retries:   4,
			RetryWait: retryWait,
		}),
	}
}

// Execute posts a query and decodes the JSON response.
func (c *Client) Execute(ctx context.Context, query string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "Execute")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("accept", "application/json").
		SetFormData(map[string]string{"data": query}).
		Post(c.Url)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("overpass returned HTTP %d: %s", res.StatusCode(), res.Status())
	}

	var payload map[string]any
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	return payload, nil
}
