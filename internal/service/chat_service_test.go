package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvalmar/luma/internal/ai"
	"github.com/nvalmar/luma/internal/model"
	appErr "github.com/nvalmar/luma/internal/pkg/errors"
	"github.com/nvalmar/luma/internal/prompt"
)

func TestIsAdvisoryRequestMatchesKeywords(t *testing.T) {
	cases := []string{
		"Necesito una asesoría personalizada para mi caso",
		"¿Pueden evaluar mi caso antes de aplicar?",
		"Quiero hablar con un abogado",
		"necesito ASESORIA LEGAL urgente",
		"Busco un plan personalizado de estudios",
	}
	for _, msg := range cases {
		require.True(t, isAdvisoryRequest(msg), "message %q", msg)
	}
}

func TestIsAdvisoryRequestIgnoresDiacritics(t *testing.T) {
	require.True(t, isAdvisoryRequest("quiero una asesoria personalizada"))
	require.True(t, isAdvisoryRequest("quiero una asesoría personalizada"))
}

func TestIsAdvisoryRequestNegative(t *testing.T) {
	cases := []string{
		"¿Qué universidades ofrecen medicina en Madrid?",
		"¿Cuánto cuesta un máster en España?",
		"Hola, ¿cómo estás?",
	}
	for _, msg := range cases {
		require.False(t, isAdvisoryRequest(msg), "message %q", msg)
	}
}

func TestAdvisoryReplyIncludesBookingLink(t *testing.T) {
	s := &ChatService{bookingLink: "https://example.com/reservar"}
	reply := s.advisoryReply()
	require.Contains(t, reply, "https://example.com/reservar")
	require.Contains(t, reply, "asesoría")
}

func TestConversationTitleTruncatesByRunes(t *testing.T) {
	short := "Hola"
	require.Equal(t, short, conversationTitle(short))

	long := strings.Repeat("ñ", 80)
	title := conversationTitle(long)
	require.Equal(t, strings.Repeat("ñ", 50)+"...", title)

	exact := strings.Repeat("a", 50)
	require.Equal(t, exact, conversationTitle(exact))
}

func TestNormalizeForMatch(t *testing.T) {
	require.Equal(t, "asesoria migratoria", normalizeForMatch("Asesoría Migratoria"))
	require.Equal(t, "anio", normalizeForMatch("aNIo"))
}

type fakeConvs struct {
	created []*model.Conversation
	touched int
}

func (f *fakeConvs) Create(ctx context.Context, conv *model.Conversation) error {
	f.created = append(f.created, conv)
	return nil
}

func (f *fakeConvs) GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error) {
	for _, c := range f.created {
		if c.ID == convID && c.UserID == userID {
			return c, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeConvs) List(ctx context.Context, userID string, limit, offset uint) ([]model.Conversation, error) {
	return nil, nil
}

func (f *fakeConvs) Touch(ctx context.Context, convID string, mtime int64) error {
	f.touched++
	return nil
}

func (f *fakeConvs) Delete(ctx context.Context, userID, convID string) error { return nil }

type fakeMsgs struct {
	created []*model.Message
	history []model.Message
	count   int
}

func (f *fakeMsgs) Create(ctx context.Context, msg *model.Message) error {
	f.created = append(f.created, msg)
	return nil
}

func (f *fakeMsgs) List(ctx context.Context, convID string) ([]model.Message, error) {
	return f.history, nil
}

func (f *fakeMsgs) Count(ctx context.Context, convID string) (int, error) {
	return f.count, nil
}

type fakeUsers struct {
	user *model.User
}

func (f *fakeUsers) GetByID(ctx context.Context, userID string) (*model.User, error) {
	if f.user == nil {
		return nil, appErr.ErrNotFound
	}
	return f.user, nil
}

type fakeSemanticMem struct {
	added []string
	facts []model.SemanticFact
}

func (f *fakeSemanticMem) Add(ctx context.Context, userID, content string) bool {
	f.added = append(f.added, content)
	return true
}

func (f *fakeSemanticMem) Search(ctx context.Context, userID, query string, limit int) []model.SemanticFact {
	return f.facts
}

type fakeEpisodicMem struct {
	added    []string
	episodes []model.Episode
}

func (f *fakeEpisodicMem) Add(ctx context.Context, userID, summary string, messageCount int) bool {
	f.added = append(f.added, summary)
	return true
}

func (f *fakeEpisodicMem) Search(ctx context.Context, userID, query string, limit int) []model.Episode {
	return f.episodes
}

type summarySet struct {
	summary string
	count   int
}

type fakeConvMem struct {
	current *model.ConversationSummary
	sets    []summarySet
}

func (f *fakeConvMem) Get(ctx context.Context, conversationID string) *model.ConversationSummary {
	return f.current
}

func (f *fakeConvMem) Set(ctx context.Context, conversationID, userID, summary string, messageCount int) bool {
	f.sets = append(f.sets, summarySet{summary: summary, count: messageCount})
	return true
}

type fakeRetrieverMem struct {
	chunks []model.ScoredChunk
	maxSim float64
}

func (f *fakeRetrieverMem) Retrieve(ctx context.Context, query string, topK, maxTokens int) ([]model.ScoredChunk, float64) {
	return f.chunks, f.maxSim
}

type fakeWebSearcher struct {
	calls   int
	results []model.WebResult
}

func (f *fakeWebSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.WebResult, error) {
	f.calls++
	return f.results, nil
}

type fakeSummaryGen struct {
	calls int
	out   string
}

func (f *fakeSummaryGen) Generate(ctx context.Context, messages []ai.Message) string {
	f.calls++
	return f.out
}

type chatFixture struct {
	convs     *fakeConvs
	msgs      *fakeMsgs
	users     *fakeUsers
	semantic  *fakeSemanticMem
	episodic  *fakeEpisodicMem
	convMem   *fakeConvMem
	retriever *fakeRetrieverMem
	searcher  *fakeWebSearcher
	summaries *fakeSummaryGen
	chat      *fakeChatModel
	svc       *ChatService
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		convs:     &fakeConvs{},
		msgs:      &fakeMsgs{},
		users:     &fakeUsers{user: &model.User{ID: "u1", Name: "Ana"}},
		semantic:  &fakeSemanticMem{},
		episodic:  &fakeEpisodicMem{},
		convMem:   &fakeConvMem{},
		retriever: &fakeRetrieverMem{},
		searcher:  &fakeWebSearcher{},
		summaries: &fakeSummaryGen{},
		chat:      &fakeChatModel{reply: "respuesta"},
	}
	f.svc = NewChatService(f.convs, f.msgs, f.users, f.semantic, f.episodic, f.convMem,
		f.retriever, f.searcher, f.summaries, f.chat, "https://example.com/reservar")
	return f
}

func someChunks(sim float64) []model.ScoredChunk {
	return []model.ScoredChunk{{Chunk: model.Chunk{ID: "c1", Content: "becas"}, Similarity: sim}}
}

func TestGatherContextBufferedSkipsWebWhenSimilarityHigh(t *testing.T) {
	f := newChatFixture()
	f.retriever.chunks = someChunks(0.8)
	f.retriever.maxSim = 0.8

	f.svc.gatherContext(context.Background(), "u1", "c1", "¿becas?", false)
	require.Zero(t, f.searcher.calls)
}

func TestGatherContextBufferedTriggersWebBelowThreshold(t *testing.T) {
	f := newChatFixture()
	f.retriever.chunks = someChunks(0.7)
	f.retriever.maxSim = 0.7
	f.searcher.results = []model.WebResult{{Title: "t", URL: "https://x", Snippet: "s"}}

	f.svc.gatherContext(context.Background(), "u1", "c1", "¿becas?", false)
	require.Equal(t, 1, f.searcher.calls)
}

func TestGatherContextStreamingUsesLowerThreshold(t *testing.T) {
	f := newChatFixture()
	f.retriever.chunks = someChunks(0.7)
	f.retriever.maxSim = 0.7

	// 0.7 triggers the buffered path but not the streaming one
	f.svc.gatherContext(context.Background(), "u1", "c1", "¿becas?", true)
	require.Zero(t, f.searcher.calls)

	f.retriever.maxSim = 0.5
	f.retriever.chunks = someChunks(0.5)
	f.svc.gatherContext(context.Background(), "u1", "c1", "¿becas?", true)
	require.Equal(t, 1, f.searcher.calls)
}

func TestGatherContextStreamingTriggersWebWithoutChunks(t *testing.T) {
	f := newChatFixture()
	f.retriever.chunks = nil
	f.retriever.maxSim = 0

	f.svc.gatherContext(context.Background(), "u1", "c1", "¿becas?", true)
	require.Equal(t, 1, f.searcher.calls)
}

func TestGatherContextHistoryWindowWithSummary(t *testing.T) {
	f := newChatFixture()
	f.convMem.current = &model.ConversationSummary{Summary: "resumen previo"}
	for i := 0; i < 8; i++ {
		f.msgs.history = append(f.msgs.history, model.Message{Role: model.RoleUser, Content: "m"})
	}

	tc := f.svc.gatherContext(context.Background(), "u1", "c1", "hola", false)
	// system prompt, five most recent history messages, current user message
	require.Len(t, tc.messages, 7)
	require.Equal(t, model.RoleSystem, tc.messages[0].Role)
	require.Equal(t, "hola", tc.messages[len(tc.messages)-1].Content)
	require.Contains(t, tc.systemPrompt, "resumen previo")
}

func TestGatherContextFullHistoryWithoutSummary(t *testing.T) {
	f := newChatFixture()
	for i := 0; i < 8; i++ {
		f.msgs.history = append(f.msgs.history, model.Message{Role: model.RoleUser, Content: "m"})
	}

	tc := f.svc.gatherContext(context.Background(), "u1", "c1", "hola", false)
	require.Len(t, tc.messages, 10)
}

func TestReconcileSemanticUpdate(t *testing.T) {
	f := newChatFixture()
	f.msgs.count = 3
	update := "el usuario estudia medicina"

	memoryUpdated, summaryUpdated, episodicUpdated := f.svc.reconcile(context.Background(), "u1", "c1",
		prompt.Parsed{MemoryUpdate: &update}, nil)
	require.True(t, memoryUpdated)
	require.False(t, summaryUpdated)
	require.False(t, episodicUpdated)
	require.Equal(t, []string{update}, f.semantic.added)
}

func TestReconcileExplicitSummaryBypassesGenerator(t *testing.T) {
	f := newChatFixture()
	f.msgs.count = 3
	update := "resumen explícito"

	_, summaryUpdated, _ := f.svc.reconcile(context.Background(), "u1", "c1",
		prompt.Parsed{SummaryUpdate: &update}, nil)
	require.True(t, summaryUpdated)
	require.Zero(t, f.summaries.calls)
	require.Equal(t, []summarySet{{summary: update, count: 3}}, f.convMem.sets)
}

func TestReconcileAutoSummaryAtThreshold(t *testing.T) {
	f := newChatFixture()
	f.msgs.count = summaryThreshold
	f.summaries.out = "resumen generado"

	_, summaryUpdated, _ := f.svc.reconcile(context.Background(), "u1", "c1", prompt.Parsed{}, nil)
	require.True(t, summaryUpdated)
	require.Equal(t, 1, f.summaries.calls)
	require.Equal(t, []summarySet{{summary: "resumen generado", count: summaryThreshold}}, f.convMem.sets)
}

func TestReconcileNoAutoSummaryOffThreshold(t *testing.T) {
	f := newChatFixture()
	f.msgs.count = summaryThreshold - 1

	_, summaryUpdated, _ := f.svc.reconcile(context.Background(), "u1", "c1", prompt.Parsed{}, nil)
	require.False(t, summaryUpdated)
	require.Zero(t, f.summaries.calls)
	require.Empty(t, f.convMem.sets)
}

func TestReconcileEpisodicAtThresholdResetsSummary(t *testing.T) {
	f := newChatFixture()
	f.msgs.count = episodicThreshold
	update := "el usuario completó la fase de solicitud"

	_, _, episodicUpdated := f.svc.reconcile(context.Background(), "u1", "c1",
		prompt.Parsed{EpisodicUpdate: &update}, nil)
	require.True(t, episodicUpdated)
	require.Equal(t, []string{update}, f.episodic.added)
	// the rolling summary resets after episodic capture
	last := f.convMem.sets[len(f.convMem.sets)-1]
	require.Equal(t, summarySet{summary: "", count: 0}, last)
}

func TestReconcileEpisodicRequiresUpdateAndThreshold(t *testing.T) {
	f := newChatFixture()
	update := "episodio"

	f.msgs.count = episodicThreshold
	_, _, episodicUpdated := f.svc.reconcile(context.Background(), "u1", "c1", prompt.Parsed{}, nil)
	require.False(t, episodicUpdated)
	require.Empty(t, f.episodic.added)

	f.msgs.count = episodicThreshold - 1
	_, _, episodicUpdated = f.svc.reconcile(context.Background(), "u1", "c1",
		prompt.Parsed{EpisodicUpdate: &update}, nil)
	require.False(t, episodicUpdated)
	require.Empty(t, f.episodic.added)
}

func TestSendMessagePersistsMessagesWithUser(t *testing.T) {
	f := newChatFixture()
	f.chat.reply = "Hay varias becas disponibles."

	result, err := f.svc.SendMessage(context.Background(), "u1", "", "¿Hay becas?")
	require.NoError(t, err)
	require.NotEmpty(t, result.ConversationID)
	require.Len(t, f.convs.created, 1)
	require.Len(t, f.msgs.created, 2)
	for _, m := range f.msgs.created {
		require.Equal(t, "u1", m.UserID)
		require.Equal(t, result.ConversationID, m.ConversationID)
	}
	require.Equal(t, model.RoleUser, f.msgs.created[0].Role)
	require.Equal(t, model.RoleAssistant, f.msgs.created[1].Role)
	require.Equal(t, "Hay varias becas disponibles.", result.AssistantContent)
}
