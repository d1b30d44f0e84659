package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// DefaultChatTopK is how many chunks search-and-chat puts in the prompt.
const DefaultChatTopK = 3

// maxContextChars caps each chunk's text inside the prompt.
const maxContextChars = 1000

// Chat generation parameters.
const (
	chatMaxTokens   = 1500
	chatTemperature = 0.7
)

// Built-in prompts, used when no PromptStore is set or it fails.
const (
	defaultChatSystemPrompt = `You are a personal assistant that answers questions using the user's own documents.
Be accurate and concise. When the provided context answers the question, cite the
document names you used. When it does not, say so and answer from general knowledge
only if you are confident.`

	defaultContextAnswerPrompt = `%s

Question: %s`

	noContextNote = "No relevant documents were found in the knowledge base."
)

// ChatService implements search-and-chat: retrieve context, then ask the LLM.
type ChatService struct {
	retrieval driving.RetrievalService
	llm       driven.LLMService
	prompts   driven.PromptStore
	threshold float64
}

// NewChatService creates a chat service. llm may be nil, in which case Ask
// returns domain.ErrLLMUnavailable. threshold is the default minimum
// similarity for retrieved context.
func NewChatService(retrieval driving.RetrievalService, llm driven.LLMService, threshold float64) *ChatService {
	return &ChatService{
		retrieval: retrieval,
		llm:       llm,
		threshold: threshold,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *ChatService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Ask answers question from retrieved context.
//
// When nothing matches, the model is still asked, with a note that no
// documents were found. A retrieval error aborts before the model is called.
// Zero TopK takes the chat default, as does a zero Threshold unless
// ThresholdSet says the caller chose it.
func (s *ChatService) Ask(ctx context.Context, question string, opts domain.RetrieveOptions) (*domain.Answer, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	if opts.TopK <= 0 {
		opts.TopK = DefaultChatTopK
	}
	if opts.Threshold == 0 && !opts.ThresholdSet {
		opts.Threshold = s.threshold
	}

	logger.Section("Search and Chat")

	items, err := s.retrieval.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	logger.Debug("chat: %d context items", len(items))

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: s.loadPrompt(driven.PromptChatSystem, defaultChatSystemPrompt)},
		{Role: driven.RoleUser, Content: s.buildUserMessage(items, question)},
	}

	reply, err := s.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	if items == nil {
		items = []domain.ContextItem{}
	}
	return &domain.Answer{
		Text:        strings.TrimSpace(reply),
		Sources:     items,
		ContextUsed: len(items) > 0,
		Model:       s.llm.ModelName(),
	}, nil
}

func (s *ChatService) buildUserMessage(items []domain.ContextItem, question string) string {
	template := s.loadPrompt(driven.PromptContextAnswer, defaultContextAnswerPrompt)
	if strings.Count(template, "%s") != 2 {
		logger.Warn("prompt %s must contain two %%s placeholders; using built-in", driven.PromptContextAnswer)
		template = defaultContextAnswerPrompt
	}
	return fmt.Sprintf(template, BuildContextBlock(items), question)
}

// BuildContextBlock renders context items for a prompt, each attributed to
// its source and capped at 1000 characters.
func BuildContextBlock(items []domain.ContextItem) string {
	if len(items) == 0 {
		return noContextNote
	}

	var b strings.Builder
	b.WriteString("Relevant information from the knowledge base:\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "[Document %d: %s (relevance %.2f)]\n%s\n\n",
			i+1, item.SourceName, item.SimilarityScore, truncate(item.ChunkText, maxContextChars))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *ChatService) loadPrompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	p, err := s.prompts.Load(name)
	if err != nil || strings.TrimSpace(p) == "" {
		return fallback
	}
	return p
}
