package chat

import (
	"context"
	"fmt"
	"io"

	"github.com/recallion/recallion/internal/core"
)

const systemPromptTemplate = `You are RECALLION, an AI Memory Brain assistant. You help users by answering questions based on their stored memories and knowledge.

You have access to the user's memory base and should:
1. Ground your answers in the user's stored memories when relevant
2. Clearly indicate which memories you're referencing
3. Be honest when you don't have relevant memories to draw from
4. Provide thoughtful, insightful answers that connect different memories
5. Keep responses concise but comprehensive

%s

When referencing memories, mention them naturally in your response. Be conversational and helpful.`

// Service answers a chat turn: retrieve relevant memories, assemble the prompt
// context, and open a model stream. Each turn is stateless; the caller sends
// its full transcript every time.
type Service struct {
	retriever *Retriever
	assembler *Assembler
	ai        core.ModelGateway
}

func NewService(retriever *Retriever, assembler *Assembler, ai core.ModelGateway) *Service {
	return &Service{
		retriever: retriever,
		assembler: assembler,
		ai:        ai,
	}
}

// Stream opens the model stream for one chat turn. The returned body carries
// the raw line-framed protocol; feed it to Consume.
func (s *Service) Stream(ctx context.Context, ownerID string, history []core.ChatMessage) (io.ReadCloser, error) {
	query := lastUserMessage(history)
	results := s.retriever.Search(ctx, ownerID, query)
	contextBlock := s.assembler.BuildContext(results)

	messages := make([]core.ChatMessage, 0, len(history)+1)
	messages = append(messages, core.ChatMessage{
		Role:    core.RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, contextBlock),
	})
	messages = append(messages, history...)

	return s.ai.ChatStream(ctx, messages)
}

func lastUserMessage(history []core.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == core.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
