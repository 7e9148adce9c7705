package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nvalmar/luma/internal/ai"
	"github.com/nvalmar/luma/internal/model"
	appErr "github.com/nvalmar/luma/internal/pkg/errors"
	"github.com/nvalmar/luma/internal/prompt"
	"github.com/nvalmar/luma/internal/rag"
	"github.com/nvalmar/luma/internal/websearch"
)

type conversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error)
	List(ctx context.Context, userID string, limit, offset uint) ([]model.Conversation, error)
	Touch(ctx context.Context, convID string, mtime int64) error
	Delete(ctx context.Context, userID, convID string) error
}

type messageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	List(ctx context.Context, convID string) ([]model.Message, error)
	Count(ctx context.Context, convID string) (int, error)
}

type profileReader interface {
	GetByID(ctx context.Context, userID string) (*model.User, error)
}

type semanticMemory interface {
	Add(ctx context.Context, userID, content string) bool
	Search(ctx context.Context, userID, query string, limit int) []model.SemanticFact
}

type episodicMemory interface {
	Add(ctx context.Context, userID, summary string, messageCount int) bool
	Search(ctx context.Context, userID, query string, limit int) []model.Episode
}

type conversationMemory interface {
	Get(ctx context.Context, conversationID string) *model.ConversationSummary
	Set(ctx context.Context, conversationID, userID, summary string, messageCount int) bool
}

type contextRetriever interface {
	Retrieve(ctx context.Context, query string, topK, maxTokens int) ([]model.ScoredChunk, float64)
}

type summaryGenerator interface {
	Generate(ctx context.Context, messages []ai.Message) string
}

const (
	summaryThreshold  = 10
	episodicThreshold = 20

	memorySearchLimit = 5
	webSearchLimit    = 5

	// the buffered and streaming paths use different web-search triggers on
	// purpose; see the per-path checks below
	bufferedWebThreshold  = 0.75
	streamingWebThreshold = 0.6

	historyWindow = 5

	chatTemperature = 0.4
	chatMaxTokens   = 2000
)

// advisoryKeywords flags requests for individualized advisory; matching is
// case-insensitive and diacritic-normalized.
var advisoryKeywords = []string{
	"asesoría personalizada",
	"asesor personal",
	"asesor personalizado",
	"asesoría individual",
	"asesor individual",
	"asesoría privada",
	"asesor privado",
	"consulta personalizada",
	"consulta personal",
	"consulta individual",
	"evaluar mi caso",
	"evaluar mi situación",
	"mi caso específico",
	"mi situación particular",
	"análisis de mi caso",
	"revisar mis documentos",
	"revisar mi documentación",
	"ayuda con mis trámites",
	"acompañamiento",
	"acompañar",
	"estrategia migratoria",
	"estrategias migratorias",
	"plan personalizado",
	"plan personal",
	"asesoría legal",
	"abogado",
	"abogada",
	"asesor legal",
	"asesor jurídico",
}

type SendResult struct {
	AssistantMessageID string `json:"assistant_message_id"`
	AssistantContent   string `json:"assistant_content"`
	ConversationID     string `json:"conversation_id"`
	MemoryUpdated      bool   `json:"memory_updated"`
	SummaryUpdated     bool   `json:"summary_updated"`
	EpisodicUpdated    bool   `json:"episodic_updated"`
}

// StreamEvent is one server-sent event of a streamed turn. Errors travel
// in-band because the transport is already committed to a stream.
type StreamEvent struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Chunk          string `json:"chunk,omitempty"`
	Error          string `json:"error,omitempty"`
	Done           bool   `json:"done,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
}

type StreamEmitter func(ev StreamEvent)

// ChatService orchestrates one conversational turn: conversation resolution,
// context gathering, prompt assembly, model invocation, response parsing and
// memory reconciliation.
type ChatService struct {
	convs     conversationStore
	msgs      messageStore
	users     profileReader
	semantic  semanticMemory
	episodic  episodicMemory
	convMem   conversationMemory
	retriever contextRetriever
	searcher  websearch.ISearcher
	summaries summaryGenerator
	chat      ai.IChatModel

	bookingLink string
}

func NewChatService(convs conversationStore, msgs messageStore, users profileReader,
	semantic semanticMemory, episodic episodicMemory, convMem conversationMemory,
	retriever contextRetriever, searcher websearch.ISearcher, summaries summaryGenerator,
	chat ai.IChatModel, bookingLink string) *ChatService {
	return &ChatService{
		convs:       convs,
		msgs:        msgs,
		users:       users,
		semantic:    semantic,
		episodic:    episodic,
		convMem:     convMem,
		retriever:   retriever,
		searcher:    searcher,
		summaries:   summaries,
		chat:        chat,
		bookingLink: bookingLink,
	}
}

var diacriticReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")

func normalizeForMatch(s string) string {
	return diacriticReplacer.Replace(strings.ToLower(s))
}

// isAdvisoryRequest reports whether the message asks for individualized
// advisory and should bypass the model entirely.
func isAdvisoryRequest(message string) bool {
	normalized := normalizeForMatch(message)
	for _, kw := range advisoryKeywords {
		if strings.Contains(normalized, normalizeForMatch(kw)) {
			return true
		}
	}
	return false
}

func (s *ChatService) advisoryReply() string {
	return "Entiendo que necesitas una asesoría más detallada y personalizada. " +
		"Para evaluar tu caso específico, analizar documentos, o recibir orientación personalizada " +
		"sobre estrategias migratorias o trámites, te recomiendo agendar una sesión individual con nuestros asesores.\n\n" +
		"Puedes reservar tu asesoría personalizada aquí: " + s.bookingLink + "\n\n" +
		"Mientras tanto, puedo ayudarte con información general sobre universidades, programas de estudio, " +
		"requisitos de admisión y procesos académicos en España."
}

func conversationTitle(message string) string {
	runes := []rune(message)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return message
}

// resolveConversation creates the conversation when no id is given, titling
// it from the message; otherwise it touches the existing one.
func (s *ChatService) resolveConversation(ctx context.Context, userID, convID, message string) (string, error) {
	if convID == "" {
		now := time.Now().UnixMilli()
		conv := &model.Conversation{
			ID:     newID(),
			UserID: userID,
			Title:  conversationTitle(message),
			Ctime:  now,
			Mtime:  now,
		}
		if err := s.convs.Create(ctx, conv); err != nil {
			return "", fmt.Errorf("create conversation: %w", err)
		}
		return conv.ID, nil
	}
	if _, err := s.convs.GetByID(ctx, userID, convID); err != nil {
		return "", err
	}
	if err := s.convs.Touch(ctx, convID, time.Now().UnixMilli()); err != nil {
		logutil.GetLogger(ctx).Warn("touch conversation failed", zap.Error(err))
	}
	return convID, nil
}

func (s *ChatService) persistMessage(ctx context.Context, userID, convID, role, content string) (*model.Message, error) {
	msg := &model.Message{
		ID:             newID(),
		ConversationID: convID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		Ctime:          time.Now().UnixMilli(),
	}
	if err := s.msgs.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

type turnContext struct {
	systemPrompt string
	summary      *model.ConversationSummary
	messages     []ai.Message
}

// gatherContext assembles the turn's system prompt and message list. Memory,
// retrieval and web sub-calls degrade to empty context, never abort the turn.
func (s *ChatService) gatherContext(ctx context.Context, userID, convID, message string, streaming bool) *turnContext {
	facts := s.semantic.Search(ctx, userID, message, memorySearchLimit)
	factTexts := make([]string, 0, len(facts))
	for _, f := range facts {
		factTexts = append(factTexts, f.Content)
	}

	episodes := s.episodic.Search(ctx, userID, message, memorySearchLimit)
	episodeTexts := make([]string, 0, len(episodes))
	for _, e := range episodes {
		episodeTexts = append(episodeTexts, e.Summary)
	}

	summary := s.convMem.Get(ctx, convID)

	chunks, maxSim := s.retriever.Retrieve(ctx, message, rag.DefaultTopK, rag.DefaultMaxTokens)

	var webResults []model.WebResult
	useWeb := false
	if streaming {
		useWeb = len(chunks) == 0 || maxSim < streamingWebThreshold
	} else {
		useWeb = maxSim < bufferedWebThreshold
	}
	if useWeb {
		logutil.GetLogger(ctx).Info("similarity below threshold, performing web search",
			zap.Float64("max_similarity", maxSim), zap.Bool("streaming", streaming))
		results, err := s.searcher.Search(ctx, message, webSearchLimit)
		if err != nil {
			logutil.GetLogger(ctx).Warn("web search failed", zap.Error(err))
		} else {
			webResults = results
		}
	}

	profile := prompt.Profile{}
	if user, err := s.users.GetByID(ctx, userID); err == nil {
		profile = prompt.Profile{
			Name:           user.Name,
			StudyType:      user.StudyType,
			CareerInterest: user.CareerInterest,
			Nationality:    user.Nationality,
		}
	} else {
		logutil.GetLogger(ctx).Warn("load user profile failed", zap.Error(err))
	}

	summaryText := ""
	if summary != nil {
		summaryText = summary.Summary
	}
	systemPrompt := prompt.Compose(prompt.ComposeInput{
		SemanticContext:     prompt.FormatFacts(factTexts),
		EpisodicContext:     prompt.FormatFacts(episodeTexts),
		ConversationSummary: summaryText,
		Profile:             profile,
		RAGContext:          prompt.FormatChunks(chunks),
		WebContext:          prompt.FormatWebResults(webResults),
	})

	history, err := s.msgs.List(ctx, convID)
	if err != nil {
		logutil.GetLogger(ctx).Warn("load conversation history failed", zap.Error(err))
		history = nil
	}
	// when a summary covers the past, only the most recent messages ride
	// along verbatim
	if summary != nil && len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: model.RoleSystem, Content: systemPrompt})
	for _, h := range history {
		messages = append(messages, ai.Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, ai.Message{Role: model.RoleUser, Content: message})

	return &turnContext{systemPrompt: systemPrompt, summary: summary, messages: messages}
}

// reconcile applies parsed memory updates after the assistant message is
// persisted. Every sub-step is non-fatal.
func (s *ChatService) reconcile(ctx context.Context, userID, convID string, parsed prompt.Parsed, messages []ai.Message) (memoryUpdated, summaryUpdated, episodicUpdated bool) {
	if prompt.HasUpdate(parsed.MemoryUpdate) {
		memoryUpdated = s.semantic.Add(ctx, userID, *parsed.MemoryUpdate)
	}

	messageCount, err := s.msgs.Count(ctx, convID)
	if err != nil {
		logutil.GetLogger(ctx).Warn("count conversation messages failed", zap.Error(err))
		return
	}

	if prompt.HasUpdate(parsed.SummaryUpdate) {
		summaryUpdated = s.convMem.Set(ctx, convID, userID, *parsed.SummaryUpdate, messageCount)
	} else if messageCount > 0 && messageCount%summaryThreshold == 0 {
		if auto := s.summaries.Generate(ctx, messages); auto != "" {
			summaryUpdated = s.convMem.Set(ctx, convID, userID, auto, messageCount)
		}
	}

	if messageCount > 0 && messageCount%episodicThreshold == 0 && prompt.HasUpdate(parsed.EpisodicUpdate) {
		episodicUpdated = s.episodic.Add(ctx, userID, *parsed.EpisodicUpdate, messageCount)
		// episodic capture resets the rolling summary
		s.convMem.Set(ctx, convID, userID, "", 0)
	}
	return
}

// sendAdvisory persists the user message plus the canned advisory reply.
func (s *ChatService) sendAdvisory(ctx context.Context, userID, convID, message string) (*SendResult, error) {
	convID, err := s.resolveConversation(ctx, userID, convID, message)
	if err != nil {
		return nil, err
	}
	if _, err := s.persistMessage(ctx, userID, convID, model.RoleUser, message); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	reply := s.advisoryReply()
	msg, err := s.persistMessage(ctx, userID, convID, model.RoleAssistant, reply)
	if err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}
	return &SendResult{
		AssistantMessageID: msg.ID,
		AssistantContent:   reply,
		ConversationID:     convID,
	}, nil
}

// SendMessage runs one buffered turn.
func (s *ChatService) SendMessage(ctx context.Context, userID, convID, message string) (*SendResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, appErr.ErrInvalid
	}
	if isAdvisoryRequest(message) {
		logutil.GetLogger(ctx).Info("advisory request detected, returning canned reply")
		return s.sendAdvisory(ctx, userID, convID, message)
	}

	convID, err := s.resolveConversation(ctx, userID, convID, message)
	if err != nil {
		return nil, err
	}
	if _, err := s.persistMessage(ctx, userID, convID, model.RoleUser, message); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	tc := s.gatherContext(ctx, userID, convID, message, false)

	raw, err := s.chat.Chat(ctx, tc.messages, ai.ChatOptions{Temperature: chatTemperature, MaxTokens: chatMaxTokens})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, appErr.ErrEmptyResponse
	}

	parsed := prompt.Parse(raw)
	content := strings.TrimSpace(parsed.AssistantResponse)
	if content == "" {
		return nil, appErr.ErrEmptyResponse
	}

	msg, err := s.persistMessage(ctx, userID, convID, model.RoleAssistant, content)
	if err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	memoryUpdated, summaryUpdated, episodicUpdated := s.reconcile(ctx, userID, convID, parsed, tc.messages)

	return &SendResult{
		AssistantMessageID: msg.ID,
		AssistantContent:   content,
		ConversationID:     convID,
		MemoryUpdated:      memoryUpdated,
		SummaryUpdated:     summaryUpdated,
		EpisodicUpdated:    episodicUpdated,
	}, nil
}

// SendMessageStream runs one streamed turn, emitting chunk events as model
// output arrives. Once the memory delimiter shows up in the accumulated
// buffer, only the pre-delimiter text is ever forwarded.
func (s *ChatService) SendMessageStream(ctx context.Context, userID, convID, message string, emit StreamEmitter) {
	if strings.TrimSpace(message) == "" {
		emit(StreamEvent{Error: "el mensaje no puede estar vacío"})
		return
	}
	if isAdvisoryRequest(message) {
		result, err := s.sendAdvisory(ctx, userID, convID, message)
		if err != nil {
			emit(StreamEvent{Error: err.Error()})
			return
		}
		emit(StreamEvent{ConversationID: result.ConversationID})
		emit(StreamEvent{Chunk: result.AssistantContent})
		emit(StreamEvent{Done: true, MessageID: result.AssistantMessageID, ConversationID: result.ConversationID})
		return
	}

	convID, err := s.resolveConversation(ctx, userID, convID, message)
	if err != nil {
		emit(StreamEvent{Error: "no se pudo resolver la conversación"})
		return
	}
	emit(StreamEvent{ConversationID: convID})

	if _, err := s.persistMessage(ctx, userID, convID, model.RoleUser, message); err != nil {
		emit(StreamEvent{Error: "no se pudo insertar el mensaje del usuario"})
		return
	}

	tc := s.gatherContext(ctx, userID, convID, message, true)

	var full strings.Builder
	lastSent := 0
	chunksReceived := 0

	err = s.chat.ChatStream(ctx, tc.messages, ai.ChatOptions{Temperature: chatTemperature, MaxTokens: chatMaxTokens},
		func(delta string) error {
			chunksReceived++
			full.WriteString(delta)
			accumulated := full.String()
			if idx := strings.Index(accumulated, prompt.MemoryUpdateStart); idx != -1 {
				if idx > lastSent {
					emit(StreamEvent{Chunk: accumulated[lastSent:idx]})
					lastSent = idx
				}
				return nil
			}
			emit(StreamEvent{Chunk: delta})
			lastSent = len(accumulated)
			return nil
		})
	if err != nil {
		emit(StreamEvent{Error: "error al obtener respuesta del modelo: " + err.Error()})
		return
	}
	if chunksReceived == 0 {
		emit(StreamEvent{Error: "el modelo no devolvió ninguna respuesta"})
		return
	}
	raw := full.String()
	if strings.TrimSpace(raw) == "" {
		emit(StreamEvent{Error: "el modelo devolvió una respuesta vacía"})
		return
	}

	parsed := prompt.Parse(raw)
	content := strings.TrimSpace(parsed.AssistantResponse)
	if content == "" {
		emit(StreamEvent{Error: "no se pudo procesar la respuesta del modelo"})
		return
	}
	// flush any tail the delimiter check held back
	if !strings.Contains(raw, prompt.MemoryUpdateStart) && len(content) > lastSent {
		emit(StreamEvent{Chunk: content[lastSent:]})
	}

	msg, err := s.persistMessage(ctx, userID, convID, model.RoleAssistant, content)
	if err != nil {
		emit(StreamEvent{Error: "error al guardar la respuesta"})
		return
	}

	s.reconcile(ctx, userID, convID, parsed, tc.messages)

	emit(StreamEvent{Done: true, MessageID: msg.ID, ConversationID: convID})
}

// Conversations lists the user's conversations, most recently active first.
func (s *ChatService) Conversations(ctx context.Context, userID string, limit, offset uint) ([]model.Conversation, error) {
	return s.convs.List(ctx, userID, limit, offset)
}

// Messages returns a conversation's messages after checking ownership.
func (s *ChatService) Messages(ctx context.Context, userID, convID string) ([]model.Message, error) {
	if _, err := s.convs.GetByID(ctx, userID, convID); err != nil {
		return nil, err
	}
	return s.msgs.List(ctx, convID)
}

// DeleteConversation removes the conversation, its messages and its rolling
// summary.
func (s *ChatService) DeleteConversation(ctx context.Context, userID, convID string) error {
	if err := s.convs.Delete(ctx, userID, convID); err != nil {
		return err
	}
	s.convMem.Set(ctx, convID, userID, "", 0)
	return nil
}
