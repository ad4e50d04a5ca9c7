package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driving"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
	"github.com/smartmarket-labs/retrieval-engine/internal/rag"
)

// Ensure AssistantService implements the interface.
var _ driving.AssistantService = (*AssistantService)(nil)

// Answer texts for the deterministic paths. The storefront is French,
// so the assistant answers in French.
const (
	noSourcesAnswer = "Je n'ai pas trouvé d'informations pertinentes dans la base de " +
		"connaissances pour répondre à votre question."
	partialMatchAnswer = "Je n'ai trouvé que des informations partiellement liées à " +
		"votre question. Les sources ci-dessous pourraient vous aider."
)

// verbatimThreshold is the retrieval score above which the fallback
// answer quotes the top chunk directly.
const verbatimThreshold = 0.7

// sourceContentLimit truncates cited chunk content for transport.
const sourceContentLimit = 200

// AssistantService answers shopping questions grounded in the knowledge
// index, generating with the configured backend when available and
// falling back to a deterministic rule otherwise.
type AssistantService struct {
	engine  *Engine
	limiter *rate.Limiter // nil when unlimited
}

// NewAssistantService creates the assistant service.
func NewAssistantService(engine *Engine) *AssistantService {
	var limiter *rate.Limiter
	if perMin := engine.cfg.GenerationRatePerMinute; perMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(perMin)/60.0), 1)
	}
	return &AssistantService{engine: engine, limiter: limiter}
}

// Ask retrieves the top knowledge chunks for the question and produces
// an answer. Generation failures never surface to the caller; the
// deterministic fallback answers instead.
func (s *AssistantService) Ask(ctx context.Context, question string, userContext map[string]string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("ask: empty question: %w", domain.ErrInvalidInput)
	}

	traceID := uuid.NewString()
	logger.Debug("ask [%s]: %q", traceID, question)

	key := driven.AskKey{Question: question, Context: userContext}
	if data, ok := s.engine.cacheGet(ctx, key); ok {
		var cached domain.Answer
		if err := json.Unmarshal(data, &cached); err == nil {
			// Cached answers still get a fresh trace id for log correlation.
			cached.TraceID = traceID
			logger.Debug("ask [%s]: cache hit", traceID)
			return &cached, nil
		}
	}

	snap, err := s.engine.knowledgeReady(ctx)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	chunks, err := snap.index.Search(ctx, question, s.engine.cfg.KnowledgeTopK)
	if err != nil {
		return nil, fmt.Errorf("ask: retrieve: %w", err)
	}
	if len(chunks) == 0 {
		logger.Debug("ask [%s]: no sources", traceID)
		return &domain.Answer{
			Text:    noSourcesAnswer,
			Sources: []domain.Source{},
			TraceID: traceID,
			Status:  domain.AnswerStatusNoSources,
		}, nil
	}

	text := s.answerText(ctx, traceID, question, userContext, chunks)

	answer := &domain.Answer{
		Text:       text,
		Sources:    buildSources(chunks),
		TraceID:    traceID,
		Confidence: chunks[0].Score,
		Status:     domain.AnswerStatusSuccess,
	}
	if data, err := json.Marshal(answer); err == nil {
		s.engine.cacheSet(ctx, key, data)
	}
	return answer, nil
}

// answerText produces the answer body: generated when a backend is
// configured and healthy, rule-based otherwise.
func (s *AssistantService) answerText(ctx context.Context, traceID, question string, userContext map[string]string, chunks []domain.ScoredChunk) string {
	if s.engine.generator == nil {
		logger.Debug("ask [%s]: no generation backend, using fallback", traceID)
		return fallbackAnswer(chunks)
	}

	text, err := s.generate(ctx, question, userContext, chunks)
	if err != nil {
		logger.Warn("ask [%s]: generation failed, using fallback: %v", traceID, err)
		return fallbackAnswer(chunks)
	}
	return text
}

func (s *AssistantService) generate(ctx context.Context, question string, userContext map[string]string, chunks []domain.ScoredChunk) (string, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return "", fmt.Errorf("generation rate limit exceeded: %w", domain.ErrGenerationUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.engine.cfg.GenerationTimeout)
	defer cancel()

	prompt := buildPrompt(question, userContext, chunks)
	text, err := s.engine.generator.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   s.engine.cfg.GenerationMaxTokens,
		Temperature: s.engine.cfg.GenerationTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrGenerationUnavailable)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty completion: %w", domain.ErrGenerationUnavailable)
	}
	return text, nil
}

// buildPrompt assembles the grounded French prompt: numbered sources,
// optional user context, then the instruction block.
func buildPrompt(question string, userContext map[string]string, chunks []domain.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Tu es l'assistant d'achat de SmartMarket. Réponds à la question du client " +
		"en te basant uniquement sur le contexte fourni.\n\n")
	sb.WriteString("Contexte :\n")
	sb.WriteString(contextBlock(chunks))
	sb.WriteString("\n")

	if len(userContext) > 0 {
		sb.WriteString("\nInformations client :\n")
		keys := make([]string, 0, len(userContext))
		for k := range userContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s : %s\n", k, userContext[k])
		}
	}

	sb.WriteString("\nQuestion : ")
	sb.WriteString(question)
	sb.WriteString("\n\nConsignes :\n" +
		"- Réponds uniquement à partir du contexte ci-dessus.\n" +
		"- Si le contexte ne suffit pas, dis-le explicitement.\n" +
		"- Réponds en français, de façon concise.\n")
	return sb.String()
}

// contextBlock renders the retrieved chunks as numbered sources.
func contextBlock(chunks []domain.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("Source %d (score: %.3f):\n%s", i+1, c.Score, c.Chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}

// fallbackAnswer is the deterministic rule used when generation is
// unavailable: quote the best chunk when the match is strong, otherwise
// admit the partial match.
func fallbackAnswer(chunks []domain.ScoredChunk) string {
	if chunks[0].Score > verbatimThreshold {
		return strings.TrimSpace(chunks[0].Chunk.Content)
	}
	return partialMatchAnswer
}

func buildSources(chunks []domain.ScoredChunk) []domain.Source {
	sources := make([]domain.Source, len(chunks))
	for i, c := range chunks {
		sources[i] = domain.Source{
			Content:  truncateRunes(c.Chunk.Content, sourceContentLimit),
			Metadata: c.Chunk.Metadata,
			Score:    c.Score,
		}
	}
	return sources
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// Ingest adds documents to the knowledge index, persists the extended
// index and registers the artifacts.
func (s *AssistantService) Ingest(ctx context.Context, docs []domain.KnowledgeDocument) error {
	if len(docs) == 0 {
		return nil
	}

	// Build the extended index off to the side and swap it in whole, so
	// concurrent Ask calls keep serving the previous snapshot.
	s.engine.loadMu.Lock()
	defer s.engine.loadMu.Unlock()

	index, err := s.engine.newKnowledgeIndex()
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := index.Load(s.engine.cfg.ArtifactDir); err != nil && !errors.Is(err, domain.ErrArtifactMissing) {
		return fmt.Errorf("ingest: %w", err)
	}

	added, err := index.AddDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if added == 0 {
		return nil
	}
	if err := index.Save(s.engine.cfg.ArtifactDir); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	s.engine.registerKnowledgeArtifacts()
	s.engine.knowledgeSnap.Store(&knowledgeState{index: index})
	s.engine.cachePurge(ctx, driven.NamespaceAsk)
	logger.Info("ingested %d chunks from %d documents", added, len(docs))
	return nil
}

// registerKnowledgeArtifacts records the knowledge files in the
// manifest. Registration failures are logged, not fatal: the artifacts
// themselves are already on disk.
func (e *Engine) registerKnowledgeArtifacts() {
	if e.registry == nil {
		return
	}
	if err := e.registry.RegisterArtifact("knowledge-chunks", e.artifactPath(rag.ChunksFile), nil); err != nil {
		logger.Warn("register knowledge chunks: %v", err)
	}
	if err := e.registry.RegisterIndex("knowledge-vectors", e.artifactPath(rag.VectorsFile), nil); err != nil {
		logger.Warn("register knowledge vectors: %v", err)
	}
}
