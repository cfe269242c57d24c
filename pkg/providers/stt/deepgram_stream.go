package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/coder/websocket"
	"github.com/hashwave/voxbridge/pkg/orchestrator"
)

// DeepgramStreamingSTT satisfies orchestrator.StreamingSTTProvider over
// Deepgram's realtime websocket endpoint: a single connection per
// StreamTranscribe call, a writer goroutine forwarding the PCM chunks the
// caller sends on the returned channel, and a dedicated reader goroutine
// pumping results into a callback.
type DeepgramStreamingSTT struct {
	apiKey string
	url    string
}

func NewDeepgramStreamingSTT(apiKey string) *DeepgramStreamingSTT {
	return &DeepgramStreamingSTT{
		apiKey: apiKey,
		url:    "wss://api.deepgram.com/v1/listen",
	}
}

func (s *DeepgramStreamingSTT) Name() string {
	return "deepgram-stt-stream"
}

func (s *DeepgramStreamingSTT) Transcribe(ctx context.Context, audioPCM []byte, lang orchestrator.Language) (string, error) {
	fallback := NewDeepgramSTT(s.apiKey)
	return fallback.Transcribe(ctx, audioPCM, lang)
}

type deepgramResult struct {
	IsFinal bool `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// StreamTranscribe opens a realtime connection and returns a channel the
// caller writes raw PCM chunks to. Transcripts (interim and final) arrive
// via onTranscript on a background goroutine until ctx is cancelled or the
// caller closes the returned channel.
func (s *DeepgramStreamingSTT) StreamTranscribe(ctx context.Context, lang orchestrator.Language, onTranscript func(transcript string, isFinal bool) error) (chan<- []byte, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("model", "nova-2")
	q.Set("smart_format", "true")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", "44100")
	q.Set("channels", "1")
	if lang != "" {
		q.Set("language", string(lang))
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: map[string][]string{"Authorization": {"Token " + s.apiKey}},
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram stream: dial: %w", err)
	}

	in := make(chan []byte, 32)

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "done")
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-in:
				if !ok {
					conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`))
					return
				}
				if err := conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var res deepgramResult
			if err := json.Unmarshal(data, &res); err != nil {
				continue
			}
			if len(res.Channel.Alternatives) == 0 {
				continue
			}
			transcript := res.Channel.Alternatives[0].Transcript
			if transcript == "" {
				continue
			}
			if err := onTranscript(transcript, res.IsFinal); err != nil {
				return
			}
		}
	}()

	return in, nil
}
