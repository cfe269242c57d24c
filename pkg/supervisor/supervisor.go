// Package supervisor wires the pipeline stages — capture, VAD gate,
// transcription, history, streaming LLM, segmenter, TTS worker, playback,
// barge-in — into a single runnable agent, generalizing cmd/agent/main.go's
// inline malgo wiring plus an interactive command loop grounded on
// original_source/vad_controller.py's async command-queue pattern
// (set_sensitivity / set_playing), exposed here as stdin commands instead
// of in-process method calls.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CommandSink receives operator commands parsed from stdin.
type CommandSink interface {
	SetSensitivity(value float64)
}

// CommandLoop reads newline-delimited commands from r until EOF, ctx
// cancellation, or a quit command, dispatching to sink and signalling quit
// via the returned channel. Recognized commands:
//
//	q | quit | exit   -> close the returned channel, stop reading
//	v<float>           -> sink.SetSensitivity(float)
//
// Unrecognized lines (including free text) are ignored.
func CommandLoop(ctx context.Context, r io.Reader, sink CommandSink) <-chan struct{} {
	quit := make(chan struct{})

	go func() {
		defer close(quit)
		scanner := bufio.NewScanner(r)
		lines := make(chan string)

		go func() {
			defer close(lines)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				if shouldQuit(line) {
					return
				}
				dispatch(line, sink)
			}
		}
	}()

	return quit
}

func shouldQuit(line string) bool {
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "q", "quit", "exit":
		return true
	default:
		return false
	}
}

func dispatch(line string, sink CommandSink) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || (line[0] != 'v' && line[0] != 'V') {
		return
	}
	val, err := strconv.ParseFloat(line[1:], 64)
	if err != nil {
		return
	}
	sink.SetSensitivity(val)
}

// Stage names used as StageDuration labels, kept in one place so callers
// don't hand-type label strings.
const (
	StageASR      = "asr"
	StageLLM      = "llm"
	StageSegment  = "segment"
	StageTTS      = "tts"
	StagePlayback = "playback"
)

// LogStageError records an error metric and formats it for the caller's
// logger, keeping the metrics/logging pairing in one place.
func LogStageError(stage string, err error) string {
	Errors.WithLabelValues(stage).Inc()
	return fmt.Sprintf("%s stage error: %v", stage, err)
}
