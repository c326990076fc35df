package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/recallion/recallion/internal/core"
	"github.com/recallion/recallion/internal/gateway"
	"github.com/recallion/recallion/pkg/log"
)

const readChunkSize = 4 * 1024

// Result summarizes one consumed stream.
type Result struct {
	// SawSentinel is true when the stream ended with the termination sentinel
	// rather than a bare EOF.
	SawSentinel bool
	// MalformedFrames counts terminated data lines whose payload failed to
	// parse. Each was reported and skipped; none aborted the stream.
	MalformedFrames int
}

// Consume reads the line-framed protocol from body until the termination
// sentinel, stream end, or cancellation, appending each delta to transcript
// and notifying onDelta (which may be nil). The body is closed on every exit
// path. The sequence is finite and not restartable.
func Consume(ctx context.Context, body io.ReadCloser, transcript *Transcript, onDelta func(delta string) error) (Result, error) {
	defer body.Close()
	logger := log.FromCtx(ctx)

	var framer gateway.LineFramer
	var res Result

	handle := func(line string) error {
		frame := gateway.ParseFrame(line)
		switch frame.Kind {
		case gateway.FrameDelta:
			transcript.Append(frame.Delta)
			if onDelta != nil {
				if err := onDelta(frame.Delta); err != nil {
					return err
				}
			}
		case gateway.FrameDone:
			res.SawSentinel = true
		case gateway.FrameMalformed:
			// The line is complete; re-buffering it could never help. Report
			// and move on to the next frame.
			res.MalformedFrames++
			logger.Warn().Err(frame.Err).Msg("skipping malformed stream frame")
		}
		return nil
	}

	buf := make([]byte, readChunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range framer.Feed(buf[:n]) {
				if err := handle(line); err != nil {
					return res, err
				}
				if res.SawSentinel {
					transcript.Close()
					return res, nil
				}
			}
		}

		if readErr != nil {
			if readErr != io.EOF {
				if ctx.Err() != nil {
					transcript.Interrupt()
					return res, ctx.Err()
				}
				transcript.Interrupt()
				return res, fmt.Errorf("%w: %w", core.ErrTransport, readErr)
			}

			// Some servers close without a final terminator; the leftover tail
			// still goes through the same frame parsing.
			if tail, ok := framer.Flush(); ok {
				if err := handle(tail); err != nil {
					return res, err
				}
			}
			transcript.Close()
			return res, nil
		}
	}
}

// IsCancellation reports whether a consume error came from the caller going
// away rather than the stream failing.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
