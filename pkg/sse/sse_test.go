package sse_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/casestudio/pkg/sse"
)

func TestWriterFrames(t *testing.T) {
	rec := httptest.NewRecorder()

	w, err := sse.NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.Send("in-progress", []byte(`{"status":"in-progress"}`)))
	require.NoError(t, w.Comment("ping"))
	require.NoError(t, w.Send("", []byte("line one\nline two")))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t,
		"event: in-progress\ndata: {\"status\":\"in-progress\"}\n\n"+
			": ping\n\n"+
			"data: line one\ndata: line two\n\n",
		rec.Body.String(),
	)
}

func TestReaderRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := sse.NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.Send("in-progress", []byte(`{"a":1}`)))
	require.NoError(t, w.Comment("keep-alive"))
	require.NoError(t, w.Send("complete", []byte("x\ny")))

	r := sse.NewReader(strings.NewReader(rec.Body.String()))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, sse.Event{Name: "in-progress", Data: `{"a":1}`}, ev)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, sse.Event{Name: "complete", Data: "x\ny"}, ev)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderUnterminatedEvent(t *testing.T) {
	r := sse.NewReader(strings.NewReader("event: error\ndata: {\"x\":1}"))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "error", ev.Name)
	assert.Equal(t, `{"x":1}`, ev.Data)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderSkipsEmptyEvents(t *testing.T) {
	r := sse.NewReader(strings.NewReader("event: ignored\n\ndata: kept\n\n"))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, sse.Event{Data: "kept"}, ev)
}
