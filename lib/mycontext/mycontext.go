package mycontext

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// CtxTraceContext is a context key for the trace context (used by mylog)
type CtxTraceContext struct{}

// CtxRequestID is a context key for the id of the incoming request
type CtxRequestID struct{}

// ContextFromHTTPRequest enriches the request context with trace and request id.
// The request context is kept as parent so outbound calls stop when the client goes away.
func ContextFromHTTPRequest(r *http.Request) context.Context {
	var trace string

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	traceContext := r.Header.Get("X-Cloud-Trace-Context")
	traceParts := strings.Split(traceContext, "/")
	if len(traceParts) > 0 && len(traceParts[0]) > 0 {
		trace = fmt.Sprintf("projects/%s/traces/%s", projectID, traceParts[0])
	}

	ctx := context.WithValue(r.Context(), CtxTraceContext{}, trace)

	if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
		ctx = context.WithValue(ctx, CtxRequestID{}, requestID)
	}

	return ctx
}

func TraceFromContext(c context.Context) string {
	trace, _ := c.Value(CtxTraceContext{}).(string)
	return trace
}

func RequestIDFromContext(c context.Context) string {
	requestID, _ := c.Value(CtxRequestID{}).(string)
	return requestID
}
