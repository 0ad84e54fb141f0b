// Package onet queries the O*NET beta web service for occupation
// data. Every call is authenticated with the caller's O*NET account.
package onet

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"datalab-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("fetchers/onet")

const DefaultBaseUrl = "https://services-beta.onetcenter.org/ws"

// Occupation is the summary record the listing and search endpoints
// return.
type Occupation struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	JobFamily   string `json:"job_family,omitempty"`
	Description string `json:"description,omitempty"`
}

type occupationList struct {
	Occupation []Occupation `json:"occupation"`
}

type Client struct {
	Http *resty.Client
}

func NewClient(baseUrl, user, key string) *Client {
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	client := restyutil.NewClient("onet", restyutil.Options{
		BaseUrl: strings.TrimRight(baseUrl, "/"),
		Timeout: time.Second * 30,
		Retries: 2,
	})
	client.SetBasicAuth(user, key)
	client.SetQueryParam("fmt", "json")
	return &Client{Http: client}
}

// Search runs a keyword search against mnm/search. maxResults <= 0
// leaves paging to the service's defaults.
func (c *Client) Search(ctx context.Context, keywords []string, maxResults int) ([]Occupation, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()

	req := c.Http.R().SetContext(ctx)
	if query := strings.TrimSpace(strings.Join(keywords, " ")); query != "" {
		req.SetQueryParam("keyword", query)
	}
	if maxResults > 0 {
		req.SetQueryParam("start", "1")
		req.SetQueryParam("end", strconv.Itoa(maxResults))
	}

	var list occupationList
	res, err := req.SetResult(&list).Get("/mnm/search")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("HTTP %d searching occupations", res.StatusCode())
	}
	return list.Occupation, nil
}

// Occupations lists every occupation in the My Next Move dataset.
func (c *Client) Occupations(ctx context.Context) ([]Occupation, error) {
	ctx, span := tracer.Start(ctx, "Occupations")
	defer span.End()

	var list occupationList
	res, err := c.Http.R().SetContext(ctx).SetResult(&list).Get("/mnm/occupations")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("HTTP %d listing occupations", res.StatusCode())
	}
	return list.Occupation, nil
}

// Profile fetches the full occupation report. The payload's shape
// varies per occupation, so it stays a generic document.
func (c *Client) Profile(ctx context.Context, code string) (map[string]any, error) {
	if code == "" {
		return nil, fmt.Errorf("an occupation code is required to fetch a profile")
	}
	ctx, span := tracer.Start(ctx, "Profile")
	defer span.End()

	var profile map[string]any
	res, err := c.Http.R().SetContext(ctx).SetResult(&profile).Get("/mnm/occupations/" + code)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("HTTP %d fetching occupation %s", res.StatusCode(), code)
	}
	return profile, nil
}
