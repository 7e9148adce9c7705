package prompt

import (
	"encoding/json"
	"strings"
)

const (
	MemoryUpdateStart = "---MEMORY_UPDATE---"
	MemoryUpdateEnd   = "---END_MEMORY_UPDATE---"
)

// Parsed is the structured view of one model response. Update fields are nil
// when the model signalled no update.
type Parsed struct {
	AssistantResponse string
	MemoryUpdate      *string
	EpisodicUpdate    *string
	SummaryUpdate     *string
}

type updateBlock struct {
	AssistantResponse *string `json:"assistant_response"`
	MemoryUpdate      *string `json:"memory_update"`
	EpisodicUpdate    *string `json:"episodic_update"`
	SummaryUpdate     *string `json:"summary_update"`
}

// Parse splits raw model output into the user-visible reply and the optional
// memory updates. A malformed memory block never truncates the reply: the
// whole raw text becomes the response and all updates stay nil.
func Parse(raw string) Parsed {
	raw = strings.TrimSpace(raw)

	if start := strings.Index(raw, MemoryUpdateStart); start != -1 {
		reply := strings.TrimSpace(raw[:start])
		jsonStart := start + len(MemoryUpdateStart)
		if end := strings.Index(raw[jsonStart:], MemoryUpdateEnd); end != -1 {
			jsonStr := strings.TrimSpace(raw[jsonStart : jsonStart+end])
			var block updateBlock
			if err := json.Unmarshal([]byte(jsonStr), &block); err == nil {
				return Parsed{
					AssistantResponse: reply,
					MemoryUpdate:      cleanUpdate(block.MemoryUpdate),
					EpisodicUpdate:    cleanUpdate(block.EpisodicUpdate),
					SummaryUpdate:     cleanUpdate(block.SummaryUpdate),
				}
			}
		}
		// missing end delimiter or malformed JSON: keep everything
		return Parsed{AssistantResponse: raw}
	}

	// legacy grammar: a JSON object carrying the reply itself, optionally
	// inside a code fence
	if strings.Contains(raw, `"assistant_response"`) {
		if parsed, ok := parseLegacy(raw); ok {
			return parsed
		}
	}

	return Parsed{AssistantResponse: raw}
}

func parseLegacy(raw string) (Parsed, bool) {
	jsonText := raw
	if idx := strings.Index(jsonText, "```json"); idx != -1 {
		rest := jsonText[idx+7:]
		if end := strings.Index(rest, "```"); end != -1 {
			jsonText = strings.TrimSpace(rest[:end])
		}
	} else if idx := strings.Index(jsonText, "```"); idx != -1 {
		rest := jsonText[idx+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			jsonText = strings.TrimSpace(rest[:end])
		}
	}
	start := strings.Index(jsonText, "{")
	end := strings.LastIndex(jsonText, "}")
	if start == -1 || end <= start {
		return Parsed{}, false
	}
	var block updateBlock
	if err := json.Unmarshal([]byte(jsonText[start:end+1]), &block); err != nil {
		return Parsed{}, false
	}
	reply := raw
	if block.AssistantResponse != nil && strings.TrimSpace(*block.AssistantResponse) != "" {
		reply = *block.AssistantResponse
	}
	return Parsed{
		AssistantResponse: reply,
		MemoryUpdate:      cleanUpdate(block.MemoryUpdate),
		EpisodicUpdate:    cleanUpdate(block.EpisodicUpdate),
		SummaryUpdate:     cleanUpdate(block.SummaryUpdate),
	}, true
}

// cleanUpdate normalizes "no update" spellings to nil.
func cleanUpdate(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	switch strings.ToLower(trimmed) {
	case "", "null", "none":
		return nil
	}
	return &trimmed
}

// HasUpdate reports whether a parsed update field carries content.
func HasUpdate(v *string) bool {
	return v != nil && *v != ""
}
