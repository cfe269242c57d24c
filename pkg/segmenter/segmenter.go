// Package segmenter incrementally parses streamed LLM text into
// speaker-tagged, sentence-bounded segments ready for synthesis.
//
// Grounded on original_source/sentence_segmenter.py's SentenceSegmenter,
// reworked as a pure state machine operating strictly on slices of the raw
// input buffer (never on the whole newly-arrived fragment) to avoid that
// file's content-duplication bug when a [/say_end] marker and leftover text
// for the next utterance arrive in the same Push call — see DESIGN.md,
// Open Question (a).
package segmenter

import (
	"strings"
	"unicode/utf8"
)

const (
	// SpeakerStart, SpeakerEnd and SpeechEnd are the literal structural
	// markers the upstream LLM is instructed to emit around each speaker
	// turn (see original_source/ollama_stream.py's system prompt).
	SpeakerStart = "[[/speaker_start]"
	SpeakerEnd   = "[/speaker_end]]"
	SpeechEnd    = "[/say_end]"

	// minSentenceLen is the minimum rune length content_buffer must reach
	// before the splitter is invoked, and the minimum accumulated length a
	// candidate sentence must reach before it is eligible for early
	// emission.
	minSentenceLen = 15
)

// Kind distinguishes plain narration text (outside any speaker tag) from a
// speaker-attributed content segment.
type Kind string

const (
	KindText  Kind = "text"
	KindSpeech Kind = "speech"
)

// Segment is one unit of text ready to hand to a TTS worker.
type Segment struct {
	Kind    Kind
	Speaker string
	Content string
}

type state int

const (
	stateIdle state = iota
	stateInSpeakerTag
	stateInContent
)

// SentenceSplitter breaks accumulated content into sentence-sized pieces.
// The original system used ltp.StnSplit (a model-backed Chinese sentence
// splitter); DefaultSplitter below is a punctuation-based stand-in, since
// model-backed NLP is out of scope here.
type SentenceSplitter interface {
	Split(text string) []string
}

// Segmenter is the incremental speaker/sentence state machine described
// above. It is not safe for concurrent use; callers push fragments from a
// single goroutine (the LLM streaming consumer).
type Segmenter struct {
	splitter SentenceSplitter

	state   state
	raw     string // unconsumed raw text awaiting marker resolution
	speaker string

	sentenceAcc string // per-turn plain-text accumulator fed to the splitter
}

// New creates a Segmenter using the given sentence splitter. Pass
// NewDefaultSplitter() when no model-backed splitter is available.
func New(splitter SentenceSplitter) *Segmenter {
	if splitter == nil {
		splitter = NewDefaultSplitter()
	}
	return &Segmenter{splitter: splitter}
}

// Push feeds a newly-arrived text fragment and returns zero or more
// newly-closed segments. Fragments may split markers or sentences at any
// byte boundary; Push holds incomplete data until more arrives.
func (s *Segmenter) Push(fragment string) []Segment {
	s.raw += fragment
	var out []Segment

	for {
		switch s.state {
		case stateIdle:
			idx := strings.Index(s.raw, SpeakerStart)
			if idx == -1 {
				return out
			}
			if prefix := s.raw[:idx]; prefix != "" {
				out = append(out, Segment{Kind: KindText, Content: prefix})
			}
			s.raw = s.raw[idx+len(SpeakerStart):]
			s.state = stateInSpeakerTag

		case stateInSpeakerTag:
			idx := strings.Index(s.raw, SpeakerEnd)
			if idx == -1 {
				return out
			}
			s.speaker = strings.TrimSpace(s.raw[:idx])
			s.raw = s.raw[idx+len(SpeakerEnd):]
			s.state = stateInContent
			s.sentenceAcc = ""

		case stateInContent:
			idx := strings.Index(s.raw, SpeechEnd)
			if idx == -1 {
				// No terminator yet: everything except a trailing partial
				// SpeechEnd marker is in-progress content. Hand exactly that
				// slice to the sentence processor, keep the partial marker
				// in raw, and wait for more data.
				keep := 0
				for k := len(SpeechEnd) - 1; k > 0; k-- {
					if strings.HasSuffix(s.raw, SpeechEnd[:k]) {
						keep = k
						break
					}
				}
				content := s.raw[:len(s.raw)-keep]
				s.raw = s.raw[len(s.raw)-keep:]
				out = append(out, s.processSentences(content)...)
				return out
			}

			content := s.raw[:idx]
			s.raw = s.raw[idx+len(SpeechEnd):]
			out = append(out, s.processSentences(content)...)

			if rest := strings.TrimSpace(s.sentenceAcc); rest != "" {
				out = append(out, Segment{Kind: KindSpeech, Speaker: s.speaker, Content: rest})
			}
			s.sentenceAcc = ""
			s.speaker = ""
			s.state = stateIdle
		}
	}
}

// processSentences accumulates newText into the sentence buffer and emits
// any sentences (or sentence groups) that have closed, via the early
// newline rule or the 15-rune-plus-closing-punctuation rule.
func (s *Segmenter) processSentences(newText string) []Segment {
	var out []Segment
	s.sentenceAcc += newText

	if idx := strings.IndexByte(s.sentenceAcc, '\n'); idx != -1 {
		firstLine := strings.TrimSpace(s.sentenceAcc[:idx])
		if firstLine != "" {
			out = append(out, Segment{Kind: KindSpeech, Speaker: s.speaker, Content: firstLine})
		}
		s.sentenceAcc = s.sentenceAcc[idx+1:]
	}

	if utf8.RuneCountInString(s.sentenceAcc) < minSentenceLen {
		return out
	}

	sentences := s.splitter.Split(s.sentenceAcc)
	var merged strings.Builder
	totalLen := 0
	for _, sent := range sentences {
		merged.WriteString(sent)
		totalLen += utf8.RuneCountInString(sent)

		if totalLen >= minSentenceLen && isClosedSentence(sent) {
			full := merged.String()
			out = append(out, Segment{Kind: KindSpeech, Speaker: s.speaker, Content: full})
			s.sentenceAcc = s.sentenceAcc[len(full):]
			break
		}
	}

	return out
}

var closingSuffixes = []string{"。", "！", "？", "；", "…", "。”", "！”", "？”", "\n"}

func isClosedSentence(sentence string) bool {
	sentence = strings.TrimSpace(sentence)
	for _, suf := range closingSuffixes {
		if strings.HasSuffix(sentence, suf) {
			return true
		}
	}
	return false
}

// Flush forces out whatever remains in the sentence buffer, stripping any
// stray SpeechEnd marker. Call this when the upstream stream terminates
// (normally or via barge-in) to avoid losing a trailing partial sentence.
func (s *Segmenter) Flush() []Segment {
	var out []Segment
	if rest := strings.TrimSpace(strings.ReplaceAll(s.sentenceAcc, SpeechEnd, "")); rest != "" {
		out = append(out, Segment{Kind: KindSpeech, Speaker: s.speaker, Content: rest})
	}
	s.sentenceAcc = ""
	s.raw = ""
	s.state = stateIdle
	s.speaker = ""
	return out
}
