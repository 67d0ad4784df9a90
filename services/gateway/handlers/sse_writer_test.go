// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// Tests for the SSE stream writer

package handlers

import (
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happycake/gateway/services/gateway/datatypes"
)

func TestSSEStream_FirstSendCommitsHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	stream, err := NewSSEStream(w)
	require.NoError(t, err)

	require.NoError(t, stream.Send(datatypes.MessageForClient{
		Status:  datatypes.StatusProcessing,
		Message: datatypes.KeepSSEOpen,
	}))

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", w.Header().Get("Connection"))
	assert.Equal(t, "data: {\"status\":\"processing\",\"message\":\"keep SSE open\"}\n\n",
		w.Body.String())
	assert.True(t, w.Flushed)
}

func TestSSEStream_FramesAreOrderedAndTerminated(t *testing.T) {
	w := httptest.NewRecorder()
	stream, err := NewSSEStream(w)
	require.NoError(t, err)

	require.NoError(t, stream.Send(datatypes.MessageForClient{
		Status: datatypes.StatusProcessing, Message: datatypes.KeepSSEOpen,
	}))
	require.NoError(t, stream.Send(datatypes.MessageForClient{
		Status: datatypes.StatusSuccess, Message: "order-1",
	}))

	frames := sseFrames(t, w.Body.String())
	require.Len(t, frames, 2)
	assert.Equal(t, datatypes.StatusProcessing, frames[0].Status)
	assert.Equal(t, datatypes.StatusSuccess, frames[1].Status)
	assert.Equal(t, "order-1", frames[1].Message)
}

func TestSSEStream_SendAfterCloseWritesNothing(t *testing.T) {
	w := httptest.NewRecorder()
	stream, err := NewSSEStream(w)
	require.NoError(t, err)

	require.NoError(t, stream.Send(datatypes.MessageForClient{
		Status: datatypes.StatusProcessing, Message: datatypes.KeepSSEOpen,
	}))
	written := w.Body.String()

	stream.Close()
	stream.Close() // idempotent

	err = stream.Send(datatypes.MessageForClient{
		Status: datatypes.StatusError, Message: "too late",
	})
	assert.Error(t, err)
	assert.Equal(t, written, w.Body.String())
}

func TestSSEStream_ConcurrentSends(t *testing.T) {
	w := httptest.NewRecorder()
	stream, err := NewSSEStream(w)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = stream.Send(datatypes.MessageForClient{
				Status: datatypes.StatusProcessing, Message: datatypes.KeepSSEOpen,
			})
		}()
	}
	wg.Wait()

	frames := sseFrames(t, w.Body.String())
	assert.Len(t, frames, 8)
}
