// Package calair fetches Madrid air quality datasets from the
// ciudadesabiertas dynamic API and the datos.madrid.es catalogue.
package calair

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"datalab-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("fetchers/calair")

const (
	DefaultRealtimeUrl    = "https://ciudadesabiertas.madrid.es/dynamicAPI/API/query/calair_tiemporeal.json"
	DefaultUltUrl         = "https://ciudadesabiertas.madrid.es/dynamicAPI/API/query/calair_tiemporeal_ult.json"
	DefaultHistoricoUrl   = "https://ciudadesabiertas.madrid.es/dynamicAPI/API/query/calair_historico.json"
	DefaultAccumulatedUrl = "https://datos.madrid.es/egob/catalogo/212504-1-calidad-aire-tiempo-real-acumulado.json"
)

type Client struct {
	RealtimeUrl    string
	UltUrl         string
	HistoricoUrl   string
	AccumulatedUrl string
	Http           *resty.Client
}

func NewClient() *Client {
	return &Client{
		RealtimeUrl:    DefaultRealtimeUrl,
		UltUrl:         DefaultUltUrl,
		HistoricoUrl:   DefaultHistoricoUrl,
		AccumulatedUrl: DefaultAccumulatedUrl,
		Http: restyutil.NewClient("calair", restyutil.Options{
			Timeout:   time.Second * 90,
			Retries:   3,
			RetryWait: time.Second * 2,
		}),
	}
}

func (c *Client) getJson(ctx context.Context, url string, pageSize int) (any, error) {
	req := c.Http.R().SetContext(ctx)
	if pageSize > 0 {
		req.SetQueryParam("pageSize", fmt.Sprint(pageSize))
	}
	res, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("HTTP %d: %s", res.StatusCode(), res.Status())
	}
	var payload any
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

// FetchRealtime pulls the current real-time measurement page.
func (c *Client) FetchRealtime(ctx context.Context) (any, error) {
	ctx, span := tracer.Start(ctx, "FetchRealtime")
	defer span.End()
	return c.getJson(ctx, c.RealtimeUrl, 5000)
}

// FetchUlt pulls the wide hourly table (H01..H24 columns) backing the
// unpivot job.
func (c *Client) FetchUlt(ctx context.Context) (any, error) {
	ctx, span := tracer.Start(ctx, "FetchUlt")
	defer span.End()
	return c.getJson(ctx, c.UltUrl, 5000)
}

// FetchAccumulated pulls the datos.madrid.es accumulated real-time
// catalogue entry.
func (c *Client) FetchAccumulated(ctx context.Context) (any, error) {
	ctx, span := tracer.Start(ctx, "FetchAccumulated")
	defer span.End()
	return c.getJson(ctx, c.AccumulatedUrl, 0)
}

// FetchDay queries the historico endpoint for a single civil date
// (YYYY-MM-DD).
func (c *Client) FetchDay(ctx context.Context, date string) (any, error) {
	ctx, span := tracer.Start(ctx, "FetchDay")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(map[string]string{
			"fecha_ini": date + "T00:00:00",
			"fecha_fin": date + "T23:59:59",
		}).
		Post(c.HistoricoUrl)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("HTTP %d: %s", res.StatusCode(), res.Status())
	}
	var payload any
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}
