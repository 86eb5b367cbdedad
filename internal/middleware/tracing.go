package middleware

import (
	"profileapi/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader carries the trace id back to the caller.
const TraceIDHeader = "X-Trace-ID"

// Span attributes describing the profile resource a request touched.
const (
	AttrCompetition = attribute.Key("profile.competition")
	AttrUsername    = attribute.Key("profile.username")
	AttrAddress     = attribute.Key("profile.address")
)

// TracingMiddleware starts a server span per request, continuing any trace
// in the incoming headers. The span is renamed to the matched route once the
// handler returns. Every string recorded on the span is copied because fiber
// values point into a buffer reused by later requests.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		carrier := propagation.HeaderCarrier{}
		for k, v := range c.GetReqHeaders() {
			carrier[k] = v
		}
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		method := utils.CopyString(c.Method())
		ctx, span := observability.Tracer.Start(ctx, method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(method),
				semconv.URLPath(utils.CopyString(c.Path())),
				semconv.ClientAddress(utils.CopyString(c.IP())),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals(LocalTraceID, traceID)
		c.Set(TraceIDHeader, traceID)
		c.SetUserContext(ctx)

		err := c.Next()

		route := utils.CopyString(c.Route().Path)
		span.SetName(method + " " + route)
		span.SetAttributes(semconv.HTTPRoute(route))
		span.SetAttributes(profileAttributes(c)...)

		status := c.Response().StatusCode()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		if err != nil {
			span.RecordError(err)
		}
		if err != nil || status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, utils.StatusMessage(status))
		}
		return err
	}
}

func profileAttributes(c *fiber.Ctx) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if rid, ok := c.Locals(LocalRequestID).(string); ok && rid != "" {
		attrs = append(attrs, attribute.String("request.id", utils.CopyString(rid)))
	}

	competition := c.Params("id")
	if competition == "" {
		competition = c.Query("competitionId")
	}
	if competition != "" {
		attrs = append(attrs, AttrCompetition.String(utils.CopyString(competition)))
	}
	if username := c.Params("username"); username != "" {
		attrs = append(attrs, AttrUsername.String(utils.CopyString(username)))
	}

	if addr, ok := c.Locals(LocalAddress).(string); ok && addr != "" {
		attrs = append(attrs, AttrAddress.String(utils.CopyString(addr)))
	} else if addr := c.Params("address"); addr != "" {
		attrs = append(attrs, AttrAddress.String(utils.CopyString(addr)))
	}
	return attrs
}
