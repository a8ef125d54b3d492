package ai

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	// ContextLength is the fixed token sequence length of the CLIP text encoder.
	ContextLength = 77

	startOfText = 49406
	endOfText   = 49407
	wordSuffix  = "</w>"
)

var wordPattern = regexp.MustCompile(`\p{L}+|\p{N}|[^\s\p{L}\p{N}]+`)

// Tokenizer maps label text to CLIP token ids by greedy longest match against
// the BPE vocabulary. Labels are short lowercase phrases, so merge ranks are
// not needed to reproduce the reference tokens.
type Tokenizer struct {
	vocab  map[string]int32
	maxLen int
}

// LoadTokenizer reads a JSON object of token to id.
func LoadTokenizer(path string) (*Tokenizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read vocabulary")
	}
	var vocab map[string]int32
	if err := json.Unmarshal(raw, &vocab); err != nil {
		return nil, errors.Wrap(err, "failed to parse vocabulary")
	}
	return NewTokenizer(vocab), nil
}

// NewTokenizer builds a tokenizer over an in-memory vocabulary.
func NewTokenizer(vocab map[string]int32) *Tokenizer {
	t := &Tokenizer{vocab: vocab}
	for token := range vocab {
		if n := len(token); n > t.maxLen {
			t.maxLen = n
		}
	}
	return t
}

// Encode returns exactly ContextLength ids: start token, label tokens, end
// token, then zero padding. Overlong labels are truncated.
func (t *Tokenizer) Encode(text string) []int32 {
	ids := make([]int32, 0, ContextLength)
	ids = append(ids, startOfText)

	for _, word := range wordPattern.FindAllString(strings.ToLower(strings.TrimSpace(text)), -1) {
		ids = append(ids, t.word(word+wordSuffix)...)
	}
	if len(ids) > ContextLength-1 {
		ids = ids[:ContextLength-1]
	}
	ids = append(ids, endOfText)

	return append(ids, make([]int32, ContextLength-len(ids))...)
}

func (t *Tokenizer) word(s string) []int32 {
	var out []int32
	for len(s) > 0 && s != wordSuffix {
		n := min(len(s), t.maxLen)
		for ; n > 0; n-- {
			if id, ok := t.vocab[s[:n]]; ok {
				out = append(out, id)
				break
			}
		}
		if n == 0 {
			// not in the vocabulary; drop the rune
			_, n = utf8.DecodeRuneInString(s)
		}
		s = s[n:]
	}
	return out
}
