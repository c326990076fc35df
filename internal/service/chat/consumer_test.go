package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/recallion/recallion/internal/core"
)

const streamTranscript = "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n" +
	"data: [DONE]\n"

// chunkedBody serves preset byte slices, one per Read call.
type chunkedBody struct {
	chunks [][]byte
	closed bool
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	if n < len(b.chunks[0]) {
		b.chunks[0] = b.chunks[0][n:]
	} else {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error {
	b.closed = true
	return nil
}

type failingBody struct {
	data []byte
	err  error
	sent bool
}

func (b *failingBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, b.data), nil
	}
	return 0, b.err
}

func (b *failingBody) Close() error { return nil }

func TestConsume_AnyChunkSplitYieldsSameTranscript(t *testing.T) {
	raw := []byte(streamTranscript)
	for split := 0; split <= len(raw); split++ {
		body := &chunkedBody{chunks: [][]byte{raw[:split], raw[split:]}}
		tr := NewTranscript(nil)

		res, err := Consume(context.Background(), body, tr, nil)
		if err != nil {
			t.Fatalf("split %d: unexpected error: %v", split, err)
		}
		if !res.SawSentinel {
			t.Errorf("split %d: sentinel not observed", split)
		}
		if got := tr.Assistant(); got != "Hello" {
			t.Errorf("split %d: assistant = %q, want %q", split, got, "Hello")
		}
		if !body.closed {
			t.Errorf("split %d: body not closed", split)
		}
	}
}

func TestConsume_DeltasReachCallback(t *testing.T) {
	body := &chunkedBody{chunks: [][]byte{[]byte(streamTranscript)}}
	var deltas []string
	res, err := Consume(context.Background(), body, NewTranscript(nil), func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SawSentinel || len(deltas) != 2 || deltas[0] != "Hel" || deltas[1] != "lo" {
		t.Errorf("deltas = %v, sentinel = %v", deltas, res.SawSentinel)
	}
}

func TestConsume_CallbackErrorStopsStream(t *testing.T) {
	body := &chunkedBody{chunks: [][]byte{[]byte(streamTranscript)}}
	sinkErr := errors.New("client went away")
	_, err := Consume(context.Background(), body, NewTranscript(nil), func(d string) error {
		return sinkErr
	})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected the callback error, got %v", err)
	}
	if !body.closed {
		t.Error("body must be closed when the callback fails")
	}
}

func TestConsume_MalformedFrameIsSkipped(t *testing.T) {
	raw := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
		"data: {not json\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n" +
		"data: [DONE]\n"
	body := &chunkedBody{chunks: [][]byte{[]byte(raw)}}
	tr := NewTranscript(nil)

	res, err := Consume(context.Background(), body, tr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MalformedFrames != 1 {
		t.Errorf("malformed frames = %d, want 1", res.MalformedFrames)
	}
	if got := tr.Assistant(); got != "Hello" {
		t.Errorf("assistant = %q, the malformed frame must not break the stream", got)
	}
}

func TestConsume_EOFWithoutSentinelFlushesTail(t *testing.T) {
	// No trailing newline and no [DONE]; the tail still counts.
	raw := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}"
	body := &chunkedBody{chunks: [][]byte{[]byte(raw)}}
	tr := NewTranscript(nil)

	res, err := Consume(context.Background(), body, tr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SawSentinel {
		t.Error("no sentinel was sent")
	}
	if got := tr.Assistant(); got != "Hello" {
		t.Errorf("assistant = %q, want the flushed tail applied", got)
	}
}

func TestConsume_NothingAfterSentinel(t *testing.T) {
	raw := streamTranscript + "data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n"
	body := &chunkedBody{chunks: [][]byte{[]byte(raw)}}
	tr := NewTranscript(nil)

	if _, err := Consume(context.Background(), body, tr, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.Assistant(); got != "Hello" {
		t.Errorf("assistant = %q, frames after the sentinel must be ignored", got)
	}
}

func TestConsume_ReadErrorInterrupts(t *testing.T) {
	body := &failingBody{
		data: []byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n"),
		err:  fmt.Errorf("connection reset"),
	}
	tr := NewTranscript(nil)

	_, err := Consume(context.Background(), body, tr, nil)
	if !errors.Is(err, core.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	got := tr.Assistant()
	if !strings.HasPrefix(got, "Hel") || !strings.Contains(got, "interrupted") {
		t.Errorf("assistant = %q, want partial text plus interruption notice", got)
	}
}

func TestConsume_CancellationSurfacesContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	body := &failingBody{
		data: []byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n"),
		err:  fmt.Errorf("use of closed network connection"),
	}

	_, err := Consume(ctx, body, NewTranscript(nil), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !IsCancellation(err) {
		t.Error("IsCancellation must recognize a cancelled consume")
	}
}
