package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePlainResponse(t *testing.T) {
	parsed := Parse("  Hola, ¿en qué puedo ayudarte?  ")
	require.Equal(t, "Hola, ¿en qué puedo ayudarte?", parsed.AssistantResponse)
	require.Nil(t, parsed.MemoryUpdate)
	require.Nil(t, parsed.EpisodicUpdate)
	require.Nil(t, parsed.SummaryUpdate)
}

func TestParseDelimitedBlock(t *testing.T) {
	raw := `La UCM exige la credencial UNED para alumnos internacionales.

---MEMORY_UPDATE---
{
  "memory_update": "El usuario quiere estudiar en la UCM",
  "episodic_update": null,
  "summary_update": "Conversación sobre requisitos de la UCM"
}
---END_MEMORY_UPDATE---`

	parsed := Parse(raw)
	require.Equal(t, "La UCM exige la credencial UNED para alumnos internacionales.", parsed.AssistantResponse)
	require.NotNil(t, parsed.MemoryUpdate)
	require.Equal(t, "El usuario quiere estudiar en la UCM", *parsed.MemoryUpdate)
	require.Nil(t, parsed.EpisodicUpdate)
	require.NotNil(t, parsed.SummaryUpdate)
	require.Equal(t, "Conversación sobre requisitos de la UCM", *parsed.SummaryUpdate)
}

func TestParseMissingEndDelimiterKeepsEverything(t *testing.T) {
	raw := "Respuesta al usuario.\n\n---MEMORY_UPDATE---\n{\"memory_update\": \"dato\"}"
	parsed := Parse(raw)
	require.Equal(t, raw, parsed.AssistantResponse)
	require.Nil(t, parsed.MemoryUpdate)
}

func TestParseMalformedJSONKeepsEverything(t *testing.T) {
	raw := "Respuesta al usuario.\n\n---MEMORY_UPDATE---\n{not json}\n---END_MEMORY_UPDATE---"
	parsed := Parse(raw)
	require.Equal(t, raw, parsed.AssistantResponse)
	require.Nil(t, parsed.MemoryUpdate)
	require.Nil(t, parsed.EpisodicUpdate)
	require.Nil(t, parsed.SummaryUpdate)
}

func TestParseNullSpellingsNormalizeToNil(t *testing.T) {
	raw := `Respuesta.
---MEMORY_UPDATE---
{"memory_update": "null", "episodic_update": "None", "summary_update": "  "}
---END_MEMORY_UPDATE---`
	parsed := Parse(raw)
	require.Equal(t, "Respuesta.", parsed.AssistantResponse)
	require.Nil(t, parsed.MemoryUpdate)
	require.Nil(t, parsed.EpisodicUpdate)
	require.Nil(t, parsed.SummaryUpdate)
}

func TestParseLegacyJSONObject(t *testing.T) {
	raw := `{"assistant_response": "Claro, te explico el proceso.", "memory_update": "Interesado en homologación"}`
	parsed := Parse(raw)
	require.Equal(t, "Claro, te explico el proceso.", parsed.AssistantResponse)
	require.NotNil(t, parsed.MemoryUpdate)
	require.Equal(t, "Interesado en homologación", *parsed.MemoryUpdate)
}

func TestParseLegacyFencedJSON(t *testing.T) {
	raw := "```json\n{\"assistant_response\": \"Respuesta dentro de fence\", \"summary_update\": \"resumen\"}\n```"
	parsed := Parse(raw)
	require.Equal(t, "Respuesta dentro de fence", parsed.AssistantResponse)
	require.NotNil(t, parsed.SummaryUpdate)
	require.Equal(t, "resumen", *parsed.SummaryUpdate)
}

func TestParseLegacyBrokenJSONFallsThrough(t *testing.T) {
	raw := `texto con "assistant_response" pero sin objeto válido {`
	parsed := Parse(raw)
	require.Equal(t, raw, parsed.AssistantResponse)
	require.Nil(t, parsed.MemoryUpdate)
}

func TestHasUpdate(t *testing.T) {
	require.False(t, HasUpdate(nil))
	empty := ""
	require.False(t, HasUpdate(&empty))
	val := "dato"
	require.True(t, HasUpdate(&val))
}
