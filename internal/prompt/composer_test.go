package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvalmar/luma/internal/model"
)

func TestComposeMinimal(t *testing.T) {
	out := Compose(ComposeInput{})
	require.Contains(t, out, "Eres Luma")
	require.Contains(t, out, "MEMORIA SEMÁNTICA (LARGO PLAZO)")
	require.Contains(t, out, "FORMATO DE RESPUESTA")
	require.Contains(t, out, MemoryUpdateStart)
	require.NotContains(t, out, "PERFIL DEL USUARIO")
	require.NotContains(t, out, "PRIORIDAD DE FUENTES")
}

func TestComposeSectionOrder(t *testing.T) {
	out := Compose(ComposeInput{
		SemanticContext:     "- hecho semántico",
		EpisodicContext:     "- episodio pasado",
		ConversationSummary: "resumen actual",
		Profile:             Profile{Name: "Ana"},
		RAGContext:          "=== DOCUMENTOS DEL CLIENTE ===\ncontenido",
		WebContext:          "=== INFORMACIÓN COMPLEMENTARIA DE INTERNET ===\nresultado",
	})

	markers := []string{
		"Eres Luma",
		"sistema de memoria conversacional",
		"PERFIL DEL USUARIO",
		"DOCUMENTOS DEL CLIENTE",
		"INFORMACIÓN COMPLEMENTARIA DE INTERNET",
		"PRIORIDAD DE FUENTES",
		"- hecho semántico",
		"- episodio pasado",
		"RESUMEN DE LA CONVERSACIÓN ACTUAL",
		"FORMATO DE RESPUESTA",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(out, m)
		require.Greater(t, idx, last, "marker %q out of order", m)
		last = idx
	}
}

func TestComposePriorityBlockNeedsBothSources(t *testing.T) {
	onlyRAG := Compose(ComposeInput{RAGContext: "docs"})
	require.NotContains(t, onlyRAG, "PRIORIDAD DE FUENTES")

	onlyWeb := Compose(ComposeInput{WebContext: "web"})
	require.NotContains(t, onlyWeb, "PRIORIDAD DE FUENTES")

	both := Compose(ComposeInput{RAGContext: "docs", WebContext: "web"})
	require.Contains(t, both, "PRIORIDAD DE FUENTES")
	require.Contains(t, both, "señala la discrepancia")
}

func TestComposeProfileFields(t *testing.T) {
	out := Compose(ComposeInput{Profile: Profile{
		Name:           "Ana",
		StudyType:      "máster",
		CareerInterest: "ingeniería",
		Nationality:    "colombiana",
	}})
	require.Contains(t, out, "NOMBRE DEL USUARIO: Ana")
	require.Contains(t, out, "TIPO DE ESTUDIOS: máster")
	require.Contains(t, out, "INTERÉS PROFESIONAL: ingeniería")
	require.Contains(t, out, "NACIONALIDAD: colombiana")
}

func TestComposeProfileWithoutName(t *testing.T) {
	out := Compose(ComposeInput{Profile: Profile{StudyType: "grado"}})
	require.Contains(t, out, "No se proporcionó el nombre del usuario")
	require.NotContains(t, out, "NOMBRE DEL USUARIO:")
}

func TestFormatChunks(t *testing.T) {
	out := FormatChunks([]model.ScoredChunk{
		{Chunk: model.Chunk{Content: "primer fragmento"}},
		{Chunk: model.Chunk{Content: "  "}},
		{Chunk: model.Chunk{Content: "segundo fragmento"}},
	})
	require.Contains(t, out, "=== DOCUMENTOS DEL CLIENTE ===")
	require.Contains(t, out, "[Documento 1]")
	require.Contains(t, out, "primer fragmento")
	require.Contains(t, out, "[Documento 3]")
	require.NotContains(t, out, "[Documento 2]")
	require.Contains(t, out, "=== FIN DE DOCUMENTOS DEL CLIENTE ===")

	require.Equal(t, "", FormatChunks(nil))
}

func TestFormatWebResults(t *testing.T) {
	out := FormatWebResults([]model.WebResult{
		{Title: "Becas MEC", URL: "https://example.com/becas", Snippet: "Convocatoria anual"},
		{Title: "", URL: "https://example.com/vacia", Snippet: ""},
	})
	require.Contains(t, out, "=== INFORMACIÓN COMPLEMENTARIA DE INTERNET ===")
	require.Contains(t, out, "[Resultado 1]")
	require.Contains(t, out, "Título: Becas MEC")
	require.Contains(t, out, "URL: https://example.com/becas")
	require.Contains(t, out, "Contenido: Convocatoria anual")
	require.NotContains(t, out, "https://example.com/vacia")

	require.Equal(t, "", FormatWebResults(nil))
}

func TestFormatFacts(t *testing.T) {
	require.Equal(t, "", FormatFacts(nil))
	require.Equal(t, "- uno\n- dos", FormatFacts([]string{"uno", "dos"}))
}
