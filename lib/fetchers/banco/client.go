// Package banco pulls monthly housing price series from the Banco de
// Datos of the Ayuntamiento de Madrid. The portal keeps the active
// series selection in the server-side session, so every client owns a
// cookie jar and the filter calls must happen in order.
package banco

import (
	"context"
	"fmt"
	"strings"
	"time"

	"datalab-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("fetchers/banco")

const DefaultBaseUrl = "https://servpub.madrid.es/CSEBD_WBINTER"

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

type Client struct {
	Http *resty.Client
}

func NewClient(baseUrl string) *Client {
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	return &Client{
		Http: restyutil.NewClient("banco", restyutil.Options{
			BaseUrl:   baseUrl,
			UserAgent: browserUserAgent,
			Timeout:   time.Second * 45,
			Retries:   2,
			RetryWait: time.Second * 3,
			CookieJar: true,
		}),
	}
}

// FetchSelectionPage opens a series and returns the selection page
// HTML, which embeds the variable/value metadata as javascript.
func (c *Client) FetchSelectionPage(ctx context.Context, seriesID string) (string, error) {
	ctx, span := tracer.Start(ctx, "FetchSelectionPage")
	defer span.End()

	res, err := c.Http.R().SetContext(ctx).
		SetQueryParam("numSerie", seriesID).
		Get("/seleccionSerie.html")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("HTTP %d opening series %s", res.StatusCode(), seriesID)
	}
	return res.String(), nil
}

// SetFilters configures the session's row/column layout and the value
// ids to include. Both calls mutate server-side state.
func (c *Client) SetFilters(ctx context.Context, rowVars, colVars, valueIDs []string) error {
	ctx, span := tracer.Start(ctx, "SetFilters")
	defer span.End()

	res, err := c.Http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"varFilas":    strings.Join(rowVars, " "),
			"varColumnas": strings.Join(colVars, " "),
		}).
		Get("/setearFiltroS.html")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("HTTP %d setting series layout", res.StatusCode())
	}

	res, err = c.Http.R().SetContext(ctx).
		SetQueryParam("valores", strings.Join(valueIDs, "-")).
		Get("/setearFiltroValor.html")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("HTTP %d setting series values", res.StatusCode())
	}
	return nil
}

// DownloadCsv exports the currently filtered series as CSV.
func (c *Client) DownloadCsv(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "DownloadCsv")
	defer span.End()

	res, err := c.Http.R().SetContext(ctx).
		SetFormData(map[string]string{"generarCsv": "generarCsv"}).
		Post("/detalleSerie.html")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("HTTP %d exporting series CSV", res.StatusCode())
	}
	return res.Body(), nil
}
