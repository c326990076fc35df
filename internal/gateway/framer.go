package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/recallion/recallion/internal/core"
)

// The streaming protocol is a sequence of CRLF- or LF-terminated lines whose
// boundaries do not align with network reads. LineFramer buffers raw bytes
// across reads and only releases a line once its terminator has been observed,
// so a chunk may split a line, a payload, or a multibyte rune without effect.

type LineFramer struct {
	buf []byte
}

// Feed appends a chunk and returns every line completed by it, terminators
// stripped. Bytes after the last terminator stay buffered.
func (f *LineFramer) Feed(p []byte) []string {
	f.buf = append(f.buf, p...)

	var lines []string
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			return lines
		}
		line := f.buf[:i]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		lines = append(lines, string(line))
		f.buf = f.buf[i+1:]
	}
}

// Flush drains a trailing unterminated line at stream end. Some servers omit
// the final terminator; the leftover must still pass through frame parsing.
func (f *LineFramer) Flush() (string, bool) {
	if len(f.buf) == 0 {
		return "", false
	}
	line := strings.TrimSuffix(string(f.buf), "\r")
	f.buf = nil
	return line, true
}

type FrameKind int

const (
	// FrameSkip is a blank line, a comment, or a data payload with no delta.
	FrameSkip FrameKind = iota
	// FrameDelta carries an incremental text fragment.
	FrameDelta
	// FrameDone is the termination sentinel.
	FrameDone
	// FrameMalformed is a fully terminated data line whose payload failed to
	// parse. This is a reportable condition, not a buffering artifact: the line
	// is complete and re-reading it can never succeed.
	FrameMalformed
)

type Frame struct {
	Kind  FrameKind
	Delta string
	Err   error
}

const doneSentinel = "[DONE]"

// ParseFrame classifies one complete line of the streaming protocol.
func ParseFrame(line string) Frame {
	if line == "" {
		return Frame{Kind: FrameSkip}
	}
	if strings.HasPrefix(line, ":") {
		return Frame{Kind: FrameSkip}
	}
	if !strings.HasPrefix(line, "data:") {
		return Frame{Kind: FrameSkip}
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == "" {
		return Frame{Kind: FrameSkip}
	}
	if payload == doneSentinel {
		return Frame{Kind: FrameDone}
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return Frame{
			Kind: FrameMalformed,
			Err:  fmt.Errorf("%w: stream frame: %v", core.ErrMalformedResponse, err),
		}
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return Frame{Kind: FrameSkip}
	}
	return Frame{Kind: FrameDelta, Delta: chunk.Choices[0].Delta.Content}
}
