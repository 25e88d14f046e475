package logcontext_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paystack-service/internal/logcontext"
)

func TestAppendCtx_DoesNotMutateParent(t *testing.T) {
	parent := logcontext.AppendCtx(context.Background(), slog.String("requestId", "r-1"))
	child := logcontext.AppendCtx(parent, slog.String("orderNumber", "INV-1001"))

	assert.Len(t, logcontext.Attrs(parent), 1)
	assert.Len(t, logcontext.Attrs(child), 2)
}

func TestContextHandler_AddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logcontext.ContextHandler{Handler: slog.NewJSONHandler(&buf, nil)}).With("service", "paystack-service")

	ctx := logcontext.AppendCtx(context.Background(), slog.String("reference", "order_INV-1001_1699999999"))
	logger.InfoContext(ctx, "confirming payment")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "order_INV-1001_1699999999", line["reference"])
	assert.Equal(t, "paystack-service", line["service"])
}
