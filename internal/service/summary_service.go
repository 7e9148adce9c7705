package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nvalmar/luma/internal/ai"
	"github.com/nvalmar/luma/internal/model"
)

const (
	summaryTemperature = 0.3
	summaryMaxTokens   = 500
)

// SummaryService condenses a conversation into a short rolling summary.
type SummaryService struct {
	chat ai.IChatModel
}

func NewSummaryService(chat ai.IChatModel) *SummaryService {
	return &SummaryService{chat: chat}
}

// Generate returns a summary of the given message list, or an empty string
// when nothing usable exists or the model call fails.
func (s *SummaryService) Generate(ctx context.Context, messages []ai.Message) string {
	var lines []string
	for _, msg := range messages {
		if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	if len(lines) == 0 {
		return ""
	}
	prompt := fmt.Sprintf(`Genera un resumen conciso y útil de la siguiente conversación.
El resumen debe capturar los puntos clave, decisiones tomadas, y contexto importante para futuras interacciones.

Conversación:
%s

Resumen:`, strings.Join(lines, "\n"))

	out, err := s.chat.Chat(ctx, []ai.Message{
		{Role: model.RoleSystem, Content: "Eres un asistente experto en generar resúmenes concisos y útiles."},
		{Role: model.RoleUser, Content: prompt},
	}, ai.ChatOptions{Temperature: summaryTemperature, MaxTokens: summaryMaxTokens})
	if err != nil {
		logutil.GetLogger(ctx).Warn("generate conversation summary failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(out)
}
