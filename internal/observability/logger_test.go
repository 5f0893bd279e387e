package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerFromContext(t *testing.T) {
	base := NewLogger()
	assert.Same(t, base, LoggerFromContext(context.Background(), base))

	scoped := base.WithField("request_id", "abc")
	ctx := ContextWithLogger(context.Background(), scoped)
	assert.Same(t, scoped, LoggerFromContext(ctx, base))
}
