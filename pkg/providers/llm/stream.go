package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashwave/voxbridge/pkg/orchestrator"
)

// ChunkKind distinguishes the model's internal reasoning from its visible
// response text, matching original_source/ollama_stream.py's
// chunk.message.thinking / chunk.message.content split.
type ChunkKind string

const (
	ChunkThinking ChunkKind = "thinking"
	ChunkResponse ChunkKind = "response"
)

// Chunk is one incremental piece of a streaming completion.
type Chunk struct {
	Kind ChunkKind
	Text string
}

// StreamingLLMProvider is satisfied by any LLM backend that can stream
// incremental chunks. The channel is closed when the stream ends (normally
// or via ctx cancellation); a send error on err is reported once, after
// which no further chunks arrive.
type StreamingLLMProvider interface {
	orchestrator.LLMProvider
	Stream(ctx context.Context, messages []orchestrator.Message) (<-chan Chunk, <-chan error)
}

// Stream implements StreamingLLMProvider for Anthropic's messages API.
// Grounded on hubenschmidt-asr-llm-tts's consumeAnthropicStream
// (services/gateway/internal/pipeline/llm_anthropic.go): a bufio.Scanner
// walks "event:"/"data:" lines, splitting content_block_delta events by
// delta.type into thinking vs response text, and stopping on message_stop.
func (l *AnthropicLLM) Stream(ctx context.Context, messages []orchestrator.Message) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		var system string
		var anthropicMessages []map[string]string
		for _, msg := range messages {
			if msg.Role == "system" {
				system = msg.Content
				continue
			}
			anthropicMessages = append(anthropicMessages, map[string]string{"role": msg.Role, "content": msg.Content})
		}

		payload := map[string]interface{}{
			"model":      l.model,
			"messages":   anthropicMessages,
			"max_tokens": 1024,
			"stream":     true,
		}
		if system != "" {
			payload["system"] = system
		}

		body, err := json.Marshal(payload)
		if err != nil {
			errc <- err
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewReader(body))
		if err != nil {
			errc <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", l.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			errc <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			var errResp interface{}
			json.NewDecoder(resp.Body).Decode(&errResp)
			errc <- fmt.Errorf("anthropic stream error (status %d): %v", resp.StatusCode, errResp)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var eventType string
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if data == "" {
					continue
				}
				if eventType == "message_stop" {
					return
				}
				if eventType != "content_block_delta" {
					continue
				}

				var evt struct {
					Delta struct {
						Type     string `json:"type"`
						Text     string `json:"text"`
						Thinking string `json:"thinking"`
					} `json:"delta"`
				}
				if err := json.Unmarshal([]byte(data), &evt); err != nil {
					continue
				}

				if evt.Delta.Type == "thinking_delta" && evt.Delta.Thinking != "" {
					select {
					case out <- Chunk{Kind: ChunkThinking, Text: evt.Delta.Thinking}:
					case <-ctx.Done():
						return
					}
				} else if evt.Delta.Text != "" {
					select {
					case out <- Chunk{Kind: ChunkResponse, Text: evt.Delta.Text}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, errc
}

// Stream implements StreamingLLMProvider for Groq's OpenAI-compatible chat
// completions endpoint: each "data:" line carries a
// choices[0].delta.content fragment, terminated by a literal "data: [DONE]"
// line rather than Anthropic's typed message_stop event.
func (l *GroqLLM) Stream(ctx context.Context, messages []orchestrator.Message) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		payload := map[string]interface{}{
			"model":    l.model,
			"messages": messages,
			"stream":   true,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			errc <- err
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewReader(body))
		if err != nil {
			errc <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+l.apiKey)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			errc <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			var errResp interface{}
			json.NewDecoder(resp.Body).Decode(&errResp)
			errc <- fmt.Errorf("groq stream error (status %d): %v", resp.StatusCode, errResp)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}

			var evt struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				continue
			}
			if len(evt.Choices) == 0 || evt.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case out <- Chunk{Kind: ChunkResponse, Text: evt.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errc
}
