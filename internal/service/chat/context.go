package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/recallion/recallion/internal/core"
)

// NoMemoriesSentinel is rendered when retrieval produced nothing at all.
const NoMemoriesSentinel = "The user has no stored memories yet."

const contextEncoding = "cl100k_base"

// Assembler renders retrieved memories into a bounded prompt block. The block
// is a deterministic template over the retrieval order; a token budget drops
// trailing memories rather than truncating any memory mid-text.
type Assembler struct {
	tokenBudget int
	enc         *tiktoken.Tiktoken
}

func NewAssembler(tokenBudget int) *Assembler {
	// The encoding ships with the binary's cache or is fetched on first use;
	// when unavailable we fall back to a character-based estimate.
	enc, err := tiktoken.GetEncoding(contextEncoding)
	if err != nil {
		enc = nil
	}
	return &Assembler{
		tokenBudget: tokenBudget,
		enc:         enc,
	}
}

func (a *Assembler) BuildContext(results []core.RetrievedMemory) string {
	if len(results) == 0 {
		return NoMemoriesSentinel
	}

	var sb strings.Builder
	sb.WriteString("Relevant memories from the user's knowledge base:\n")
	used := a.countTokens(sb.String())

	for i, r := range results {
		text := r.Memory.Summary
		if text == "" {
			text = r.Memory.Content
		}
		line := fmt.Sprintf("[Memory %d] %s (importance: %d/10)\n", i+1, text, r.Memory.Importance)

		cost := a.countTokens(line)
		if i > 0 && used+cost > a.tokenBudget {
			break
		}
		sb.WriteString(line)
		used += cost
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (a *Assembler) countTokens(text string) int {
	if a.enc != nil {
		return len(a.enc.Encode(text, nil, nil))
	}
	// Rough heuristic: ~4 characters per token.
	return utf8.RuneCountInString(text)/4 + 1
}
