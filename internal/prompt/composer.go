package prompt

import (
	"fmt"
	"strings"

	"github.com/nvalmar/luma/internal/model"
)

const basePersona = `Eres Luma, una asesora académica virtual especializada en estudios universitarios en España. Acompañas a estudiantes internacionales que quieren estudiar, convalidar títulos o iniciar su carrera profesional en España.

REGLAS DE INTERACCIÓN:
1. Trata al usuario con cercanía y respeto, siempre en un tono cálido y profesional.
2. Usa el nombre del usuario cuando se te proporcione; nunca inventes un nombre.
3. Sé concreta: responde primero a la pregunta y después amplía con contexto útil.
4. No proporciones asesoría legal, médica ni financiera profesional; para casos individuales remite a una asesoría personalizada.

FUNCIONES PRINCIPALES:
1. Informar sobre universidades, programas de estudio, requisitos de admisión y procesos académicos en España.
2. Personalizar cada respuesta con el perfil del estudiante (tipo de estudios, interés profesional, nacionalidad).
3. Mantener continuidad entre sesiones usando la memoria conversacional.`

const memoryPolicy = `Eres un asistente con un sistema de memoria conversacional avanzado. Tu comportamiento sigue estas reglas:
1. MEMORIA SEMÁNTICA (LARGO PLAZO): almacena información persistente y estable sobre el usuario (preferencias, datos personales no sensibles, objetivos). Debe mantenerse como hechos independientes del chat actual.
2. MEMORIA EPISÓDICA (SESIONES PASADAS): mantén resúmenes comprimidos de sesiones anteriores; nunca dependas del historial completo.
3. RESUMEN INCREMENTAL: cuando una conversación se alarga, genera resúmenes automáticos para conservar solo lo relevante.
4. RECUPERACIÓN: cuando el usuario pida algo que requiera información pasada, usa los fragmentos relevantes de la memoria para responder.
5. ACTUALIZACIÓN: tras cada mensaje del usuario, evalúa si hay información que guardar en la memoria semántica o episódica. Si no hay nada útil, deja el campo de actualización en null.`

const sourcePriority = `PRIORIDAD DE FUENTES:
- Los DOCUMENTOS DEL CLIENTE son la fuente autorizada: cuando cubran la pregunta, responde con ellos.
- La información de internet es solo complementaria: úsala para llenar vacíos o aportar datos recientes.
- Si la información de internet contradice a los documentos del cliente, señala la discrepancia explícitamente y mantén la versión de los documentos; nunca resuelvas la contradicción en silencio.`

const outputFormat = `FORMATO DE RESPUESTA:
1. Responde PRIMERO con tu respuesta normal al usuario en texto plano.
2. Si necesitas actualizar la memoria, incluye al FINAL (después de tu respuesta) el siguiente bloque:

---MEMORY_UPDATE---
{
  "memory_update": "información nueva para MEMORIA SEMÁNTICA o null",
  "episodic_update": "resumen incremental o null",
  "summary_update": "resumen condensado o null"
}
---END_MEMORY_UPDATE---

IMPORTANTE: Tu respuesta principal debe ser clara, completa y directa, personalizada con el perfil del usuario. El bloque de memoria es opcional y solo debe incluirse si hay información nueva que guardar.`

type Profile struct {
	Name           string
	StudyType      string
	CareerInterest string
	Nationality    string
}

func (p Profile) empty() bool {
	return p.Name == "" && p.StudyType == "" && p.CareerInterest == "" && p.Nationality == ""
}

type ComposeInput struct {
	SemanticContext     string
	EpisodicContext     string
	ConversationSummary string
	Profile             Profile
	RAGContext          string
	WebContext          string
}

// Compose assembles the system prompt in a fixed section order: persona,
// memory policy, profile, local documents, web results, semantic memory,
// episodic memory, conversation summary, output format.
func Compose(in ComposeInput) string {
	parts := []string{basePersona, "\n", memoryPolicy}

	if !in.Profile.empty() {
		parts = append(parts, profileBlock(in.Profile))
	}
	if in.RAGContext != "" {
		parts = append(parts, "\n\n"+in.RAGContext)
	}
	if in.WebContext != "" {
		parts = append(parts, "\n\n"+in.WebContext)
	}
	if in.RAGContext != "" && in.WebContext != "" {
		parts = append(parts, "\n\n"+sourcePriority)
	}
	if in.SemanticContext != "" {
		parts = append(parts,
			"\n\n=== MEMORIA SEMÁNTICA (LARGO PLAZO) ===",
			"Información persistente sobre el usuario:",
			in.SemanticContext)
	}
	if in.EpisodicContext != "" {
		parts = append(parts,
			"\n\n=== MEMORIA EPISÓDICA (SESIONES ANTERIORES) ===",
			"Resúmenes de conversaciones pasadas:",
			in.EpisodicContext)
	}
	if in.ConversationSummary != "" {
		parts = append(parts,
			"\n\n=== RESUMEN DE LA CONVERSACIÓN ACTUAL ===",
			in.ConversationSummary)
	}
	parts = append(parts, "\n\n"+outputFormat)
	return strings.Join(parts, "\n")
}

func profileBlock(p Profile) string {
	lines := []string{
		"\n\n=== PERFIL DEL USUARIO - USAR EN TODAS LAS RESPUESTAS ===",
		"Esta información DEBE considerarse en todas tus respuestas para personalizarlas.",
	}
	if p.Name != "" {
		lines = append(lines, fmt.Sprintf("NOMBRE DEL USUARIO: %s", p.Name),
			"Dirígete al usuario por este nombre exacto; nunca inventes otro.")
	} else {
		lines = append(lines, "No se proporcionó el nombre del usuario; usa un trato genérico y nunca inventes un nombre.")
	}
	if p.StudyType != "" {
		lines = append(lines, fmt.Sprintf("TIPO DE ESTUDIOS: %s", p.StudyType))
	}
	if p.CareerInterest != "" {
		lines = append(lines, fmt.Sprintf("INTERÉS PROFESIONAL: %s", p.CareerInterest))
	}
	if p.Nationality != "" {
		lines = append(lines, fmt.Sprintf("NACIONALIDAD: %s", p.Nationality))
	}
	return strings.Join(lines, "\n")
}

// FormatChunks renders retrieved document chunks as the local-documents
// prompt section.
func FormatChunks(chunks []model.ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	sections := []string{
		"=== DOCUMENTOS DEL CLIENTE ===",
		"Los siguientes fragmentos provienen de documentos académicos proporcionados por el administrador:",
		"",
	}
	for i, chunk := range chunks {
		content := strings.TrimSpace(chunk.Content)
		if content == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("[Documento %d]", i+1), content, "")
	}
	sections = append(sections, "=== FIN DE DOCUMENTOS DEL CLIENTE ===", "")
	return strings.Join(sections, "\n")
}

// FormatWebResults renders web search hits as the supplementary
// internet-information prompt section.
func FormatWebResults(results []model.WebResult) string {
	if len(results) == 0 {
		return ""
	}
	sections := []string{
		"=== INFORMACIÓN COMPLEMENTARIA DE INTERNET ===",
		"Los siguientes resultados provienen de búsquedas en internet para complementar la información:",
		"",
	}
	for i, r := range results {
		title := strings.TrimSpace(r.Title)
		url := strings.TrimSpace(r.URL)
		snippet := strings.TrimSpace(r.Snippet)
		if title == "" && snippet == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("[Resultado %d]", i+1))
		if title != "" {
			sections = append(sections, "Título: "+title)
		}
		if url != "" {
			sections = append(sections, "URL: "+url)
		}
		if snippet != "" {
			sections = append(sections, "Contenido: "+snippet)
		}
		sections = append(sections, "")
	}
	sections = append(sections, "=== FIN DE INFORMACIÓN DE INTERNET ===", "")
	return strings.Join(sections, "\n")
}

// FormatFacts renders memory entries as a bullet list.
func FormatFacts(items []string) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
