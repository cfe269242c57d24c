package segmenter

import "strings"

// DefaultSplitter splits text at the same closing-punctuation set the
// segmenter uses to recognize a closed sentence, keeping the delimiter
// attached to the sentence it ends. It stands in for ltp.StnSplit (a
// model-backed splitter out of scope here); splitting purely on these
// boundaries is enough for processSentences' early-emission rule, which
// re-checks closure itself on every candidate.
type DefaultSplitter struct{}

func NewDefaultSplitter() *DefaultSplitter {
	return &DefaultSplitter{}
}

func (d *DefaultSplitter) Split(text string) []string {
	var out []string
	var cur strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if isBoundaryRune(runes[i]) {
			// absorb a trailing closing quote, matching the "。”" style
			// suffixes in the closing set.
			if i+1 < len(runes) && runes[i+1] == '”' {
				cur.WriteRune(runes[i+1])
				i++
			}
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func isBoundaryRune(r rune) bool {
	switch r {
	case '。', '！', '？', '；', '…', '\n':
		return true
	default:
		return false
	}
}
