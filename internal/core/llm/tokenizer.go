package llm

import (
	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer estimates token counts for the show_token_count preference.
// tiktoken needs a BPE cache; offline machines fall back to a character
// heuristic rather than failing.
type Tokenizer struct {
	encoder  *tiktoken.Tiktoken
	fallback bool
}

// NewTokenizer returns a tokenizer over the cl100k_base encoding, the
// closest public match for the models OpenRouter fronts
func NewTokenizer() *Tokenizer {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Tokenizer{fallback: true}
	}
	return &Tokenizer{encoder: enc}
}

// Count returns the token count for text
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	if t.fallback {
		return heuristicCount(text)
	}
	return len(t.encoder.Encode(text, nil, nil))
}

// IsPrecise reports whether tiktoken is active or the heuristic is in use
func (t *Tokenizer) IsPrecise() bool {
	return !t.fallback
}

// heuristicCount approximates English prose at ~4 characters per token
func heuristicCount(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
