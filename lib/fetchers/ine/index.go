// Package ine downloads Atlas de Distribución de Renta de los Hogares
// (ADRH) indicator tables from the INE and filters them down to the
// requested territories.
package ine

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"datalab-backend/lib/restyutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var tracer = otel.Tracer("fetchers/ine")

const DefaultOperationUrl = "https://www.ine.es/dyngs/INEbase/es/operacion.htm" +
	"?c=Estadistica_C&cid=1254736177088&idp=1254735976608"

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

type Client struct {
	OperationUrl string
	TableUrlBase string
	Http         *resty.Client
}

func NewClient() *Client {
	return &Client{
		OperationUrl: DefaultOperationUrl,
		TableUrlBase: DefaultTableUrlBase,
		Http: restyutil.NewClient("ine", restyutil.Options{
			UserAgent: browserUserAgent,
			Timeout:   time.Second * 60,
			Retries:   3,
		}),
	}
}

// Index maps indicator section title → table label → table id, as
// scraped from the ADRH operation page.
type Index map[string]map[string]string

// FetchIndex scrapes the operation page: each `span.title` opens a
// section, and anchors with ids like `t_12345` under it name the
// downloadable tables.
func (c *Client) FetchIndex(ctx context.Context) (Index, error) {
	ctx, span := tracer.Start(ctx, "FetchIndex")
	defer span.End()

	res, err := c.Http.R().SetContext(ctx).Get(c.OperationUrl)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("HTTP %d fetching ADRH operation page", res.StatusCode())
	}
	return ParseIndex(res.Body())
}

// ParseIndex walks the page in document order, tracking the current
// section title.
func ParseIndex(html []byte) (Index, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	index := Index{}
	currentSection := ""
	doc.Find("span.title, a[id^=t_]").Each(func(_ int, sel *goquery.Selection) {
		if sel.Is("span.title") {
			currentSection = strings.TrimSpace(sel.Text())
			return
		}
		if currentSection == "" {
			return
		}
		id := strings.TrimPrefix(sel.AttrOr("id", ""), "t_")
		label := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sel.Text()), "."))
		if id == "" || label == "" {
			return
		}
		if index[currentSection] == nil {
			index[currentSection] = map[string]string{}
		}
		index[currentSection][label] = id
	})

	if len(index) == 0 {
		return nil, fmt.Errorf("no table index found on the ADRH operation page")
	}
	return index, nil
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName lowercases and strips accents and punctuation so
// "Cádiz" matches "cadiz".
func NormalizeName(text string) string {
	out, _, err := transform.String(stripAccents, text)
	if err != nil {
		out = text
	}
	out = strings.ToLower(out)
	out = strings.ReplaceAll(out, ".", "")
	out = strings.ReplaceAll(out, ",", "")
	return strings.TrimSpace(out)
}

// ResolveTable finds the table id whose label matches the province
// name, accent-insensitively, accepting substring matches as a
// fallback.
func ResolveTable(tables map[string]string, province string) (string, error) {
	target := NormalizeName(province)

	lookup := map[string]string{}
	for name, id := range tables {
		lookup[NormalizeName(name)] = id
	}
	if id, ok := lookup[target]; ok {
		return id, nil
	}

	names := make([]string, 0, len(lookup))
	for name := range lookup {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.Contains(name, target) {
			return lookup[name], nil
		}
	}

	options := make([]string, 0, len(tables))
	for name := range tables {
		options = append(options, name)
	}
	sort.Strings(options)
	return "", fmt.Errorf("province %q not present in the ADRH operation, options: %s",
		province, strings.Join(options, ", "))
}
