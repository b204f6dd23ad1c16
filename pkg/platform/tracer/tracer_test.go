package tracer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"adminconsole/pkg/platform/tracer"
)

func TestNoopTracer_Start(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanFetchProfile,
		tracer.String(tracer.AttrIdentityID, "u-1"),
		tracer.Bool(tracer.AttrPrivileged, true),
	)

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Bool(tracer.AttrProfileFound, false))
	span.AddEvent(tracer.EventProfileCreated, tracer.Int64("attempt", 1))
	span.End(errors.New("insert failed"))
}

func TestOTelTracer_WithInjectedTracer(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	ctx, span := tr.Start(context.Background(), tracer.SpanSignIn,
		tracer.String(tracer.AttrEmailHash, tracer.HashEmail("a@example.com")),
		tracer.Duration("elapsed", 0),
		tracer.Int64("n", 2),
	)
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Bool(tracer.AttrIsAdmin, true))
	span.AddEvent(tracer.EventAdminRetry)
	span.End(nil)
}

func TestHashEmail(t *testing.T) {
	assert.Equal(t, "", tracer.HashEmail("  "))
	assert.Len(t, tracer.HashEmail("a@example.com"), 16)
	assert.Equal(t, tracer.HashEmail("A@Example.com "), tracer.HashEmail("a@example.com"))
	assert.NotEqual(t, tracer.HashEmail("a@example.com"), tracer.HashEmail("b@example.com"))
}
