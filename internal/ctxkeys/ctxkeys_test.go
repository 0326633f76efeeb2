package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	_, ok := CallID(ctx)
	assert.False(t, ok)

	ctx = WithCallID(ctx, "c-1")
	ctx = WithToolName(ctx, "listPets")
	ctx = WithTraceID(ctx, "t-1")

	id, ok := CallID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "c-1", id)

	name, _ := ToolName(ctx)
	assert.Equal(t, "listPets", name)

	trace, _ := TraceID(ctx)
	assert.Equal(t, "t-1", trace)

	_, ok = CallID(WithCallID(context.Background(), ""))
	assert.False(t, ok, "empty values are treated as absent")
}
