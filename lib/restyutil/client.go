// Package restyutil builds the HTTP clients every fetcher shares:
// one user agent, one timeout policy, bounded retries with increasing
// wait, and slog instrumentation of each request.
package restyutil

import (
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "datalab-fetch/1.0"

type Options struct {
	BaseUrl string
	// UserAgent overrides the default fetcher identification. A few
	// upstreams (INE, Banco de Datos) reject non-browser agents.
	UserAgent string
	Timeout   time.Duration
	// Retries is the number of retries after the first attempt.
	// Transient network and 5xx responses are retried with an
	// increasing wait; 4xx responses are not.
	Retries int
	// RetryWait is the initial wait, doubled up to ten times itself.
	RetryWait time.Duration
	// CookieJar enables a session jar for upstreams that keep
	// server-side selection state between calls.
	CookieJar bool
}

// NewClient builds a resty client for a named fetcher.
func NewClient(name string, opts Options) *resty.Client {
	client := resty.New()
	if opts.BaseUrl != "" {
		client.SetBaseURL(opts.BaseUrl)
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	client.SetHeader("user-agent", ua)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 60
	}
	client.SetTimeout(timeout)

	if opts.Retries > 0 {
		wait := opts.RetryWait
		if wait == 0 {
			wait = time.Second * 2
		}
		client.SetRetryCount(opts.Retries)
		client.SetRetryWaitTime(wait)
		client.SetRetryMaxWaitTime(wait * 10)
		client.AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return res.StatusCode() >= 500
		})
	}

	if opts.CookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			// cookiejar.New with nil options cannot actually fail
			panic(err)
		}
		client.SetCookieJar(jar)
	}

	InstrumentClient(client, name)
	return client
}
