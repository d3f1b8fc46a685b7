package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/pkg/httpclient"
)

const tracerName = "github.com/utafrali/storefront/internal/commerce"

// maxResponseBody bounds GraphQL response reads.
const maxResponseBody = 8 << 20

var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "commerce_request_duration_seconds",
		Help:    "Duration of commerce backend GraphQL requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"backend", "operation", "outcome"},
)

// graphqlClient posts GraphQL documents to a single endpoint.
type graphqlClient struct {
	backend  string
	endpoint string
	headers  http.Header
	logger   *slog.Logger
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// do sends one GraphQL request through doer and returns the "data" member.
// Transport failures, non-2xx statuses and top-level "errors" are errors.
func (c *graphqlClient) do(ctx context.Context, doer httpclient.Doer, op, query string, vars map[string]any) (data gjson.Result, err error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "commerce."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("commerce.backend", c.backend),
			attribute.String("graphql.operation.name", op),
		),
	)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		requestDuration.WithLabelValues(c.backend, op, outcome).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := doer.Do(ctx, req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s %s: %w", c.backend, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, httpclient.ParseResponseError(resp, c.backend)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s response: %w", op, err)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &Error{Backend: c.backend, Op: op, Messages: []string{"malformed response body"}}
	}

	doc := gjson.ParseBytes(raw)
	if errs := doc.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return gjson.Result{}, &Error{Backend: c.backend, Op: op, Messages: messages(errs)}
	}

	c.logger.DebugContext(ctx, "commerce request completed",
		slog.String("backend", c.backend),
		slog.String("operation", op),
		slog.Duration("duration", time.Since(start)),
	)
	return doc.Get("data"), nil
}

// messages collects the "message" of every entry of a GraphQL error list.
func messages(list gjson.Result) []string {
	var out []string
	for _, e := range list.Array() {
		msg := e.Get("message").String()
		if field := e.Get("field"); field.Exists() && field.Type != gjson.Null {
			if f := joinPath(field); f != "" {
				msg = f + ": " + msg
			}
		}
		if msg != "" {
			out = append(out, msg)
		}
	}
	if len(out) == 0 {
		out = append(out, "unknown error")
	}
	return out
}

func joinPath(field gjson.Result) string {
	if !field.IsArray() {
		return field.String()
	}
	var path string
	for i, part := range field.Array() {
		if i > 0 {
			path += "."
		}
		path += part.String()
	}
	return path
}
