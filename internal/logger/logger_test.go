package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_CarriesFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("development", &buf)
	t.Cleanup(func() { InitWithWriter("test", &bytes.Buffer{}) })

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "user-1")
	child := WithFields(ctx, "message_id", "m-1")

	assert.Equal(t, "req-1", RequestID(child))

	CtxInfo(child, "delivered")
	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "user_id=user-1")
	assert.Contains(t, out, "message_id=m-1")

	// родительский контекст не получает полей дочернего
	buf.Reset()
	CtxInfo(ctx, "parent")
	assert.NotContains(t, buf.String(), "message_id")
}

func TestWorkerLog_Levels(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("production", &buf)
	t.Cleanup(func() { InitWithWriter("test", &bytes.Buffer{}) })

	WorkerLog("subscription", "expire", nil, "expired", 3)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"expired":3`)

	buf.Reset()
	WorkerLog("subscription", "expire", errors.New("db down"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"error":"db down"`)

	assert.Empty(t, RequestID(context.Background()))
}
