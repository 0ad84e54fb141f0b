package restyutil

import (
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var idcounter uint64

// InstrumentClient attaches a tracer span and slog debug lines to each
// request a fetcher client makes.
func InstrumentClient(client *resty.Client, name string) {
	tracer := otel.Tracer("fetchers/" + name)

	client.OnBeforeRequest(func(cli *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), "http "+req.Method)
		req.SetContext(ctx)

		if slog.Default().Enabled(ctx, slog.LevelDebug) {
			slog.DebugContext(
				ctx, "start request",
				"fetcher", name,
				"method", req.Method,
				"url", req.URL,
				"message_id", strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10),
			)
		}
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ctx := res.Request.Context()
		span := trace.SpanFromContext(ctx)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.url", res.Request.URL),
			attribute.Int("http.status_code", res.StatusCode()),
			attribute.Int("http.response_size", len(res.Body())),
		)
		if res.IsError() {
			span.SetStatus(codes.Error, res.Status())
		}

		slog.DebugContext(
			ctx, "finished request",
			"fetcher", name,
			"status", res.StatusCode(),
			"took", res.Time().Round(time.Millisecond),
		)
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		ctx := req.Context()
		span := trace.SpanFromContext(ctx)
		defer span.End()

		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		slog.WarnContext(ctx, "request failed", "fetcher", name, "url", req.URL, "err", err)
	})
}
