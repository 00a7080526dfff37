// Package prompts formats world definitions and snapshots into the
// messages sent to the narrator model. It only formats text: no
// parsing, no networking, no engine logic.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/narrative-engine/pkg/chat"
	"github.com/jwebster45206/narrative-engine/pkg/narrative"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// World is the static definition of the setting the narrator plays in.
type World struct {
	Title           string   `json:"title"`
	Author          string   `json:"author,omitempty"`
	Description     string   `json:"description"`
	Themes          []string `json:"themes,omitempty"`
	Tone            []string `json:"tone,omitempty"`
	NarratorRole    string   `json:"narrator_role,omitempty"`
	StyleGuidelines []string `json:"style_guidelines,omitempty"`
}

// systemRules is the fixed contract the narrator must follow: state
// changes only through EVENTS, explicit speaker tags, two-section
// output.
const systemRules = `You are the narrator and all non-player characters in a roleplaying game.

Rules:
- You must never control or describe actions taken by the player beyond what the player explicitly states.
- You must never change game state directly.
- All game state changes must be expressed ONLY through structured EVENTS.
- If no state change is required, output an empty events array.

Narrative Rules:
- Write immersive narration and dialogue.
- Use explicit speaker tags for every narrative block: [NARRATOR], [NPC: Name], [PARTY: Name].
- Never invent party members.
- Never speak as the player character.

Output Format:
You MUST respond in exactly two sections:

NARRATIVE:
<text>

EVENTS:
<json array>

Do not add explanations, markdown, or extra sections.`

// Builder assembles the message array for one narrator call.
type Builder struct {
	world        *World
	snapshot     *state.Snapshot
	history      []narrative.SpeakerLine
	historyLimit int
	userMessage  string
}

// New creates a builder with default settings.
func New() *Builder {
	return &Builder{historyLimit: 20}
}

// WithWorld sets the static world definition.
func (b *Builder) WithWorld(w *World) *Builder {
	b.world = w
	return b
}

// WithSnapshot sets the current game state snapshot.
func (b *Builder) WithSnapshot(snap *state.Snapshot) *Builder {
	b.snapshot = snap
	return b
}

// WithHistory sets recent speaker lines for continuity.
func (b *Builder) WithHistory(lines []narrative.SpeakerLine) *Builder {
	b.history = lines
	return b
}

// WithHistoryLimit caps how many trailing history lines are included.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// WithUserMessage sets the player's input for this turn.
func (b *Builder) WithUserMessage(message string) *Builder {
	b.userMessage = message
	return b
}

// Build constructs the final message array for the LLM call.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.snapshot == nil {
		return nil, fmt.Errorf("snapshot is required")
	}
	if b.userMessage == "" {
		return nil, fmt.Errorf("user message is required")
	}

	system, err := b.systemPrompt()
	if err != nil {
		return nil, fmt.Errorf("error building system prompt: %w", err)
	}

	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: system},
	}
	for _, line := range tailLines(b.history, b.historyLimit) {
		role := chat.ChatRoleAgent
		messages = append(messages, chat.ChatMessage{
			Role:    role,
			Content: formatLine(line),
		})
	}
	messages = append(messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: b.userMessage,
	})
	return messages, nil
}

func (b *Builder) systemPrompt() (string, error) {
	var sb strings.Builder
	sb.WriteString(systemRules)
	sb.WriteString("\n\n")

	if b.world != nil {
		sb.WriteString("WORLD DEFINITION\n")
		sb.WriteString(fmt.Sprintf("Title: %s\n", b.world.Title))
		if b.world.Author != "" {
			sb.WriteString(fmt.Sprintf("Author: %s\n", b.world.Author))
		}
		sb.WriteString("\nDescription:\n")
		sb.WriteString(b.world.Description)
		sb.WriteString("\n\n")
		writeList(&sb, "Themes", b.world.Themes)
		writeList(&sb, "Tone", b.world.Tone)
		if b.world.NarratorRole != "" {
			sb.WriteString("Narration Rules:\n")
			sb.WriteString(b.world.NarratorRole)
			sb.WriteString("\n\n")
		}
		writeList(&sb, "Style Guidelines", b.world.StyleGuidelines)
	}

	stateJSON, err := json.Marshal(b.snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	sb.WriteString("CURRENT GAME STATE (read-only)\n")
	sb.Write(stateJSON)
	sb.WriteString("\n")
	return sb.String(), nil
}

func writeList(sb *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(header)
	sb.WriteString(":\n")
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func formatLine(line narrative.SpeakerLine) string {
	switch line.Speaker {
	case narrative.SpeakerNarrator:
		return "[NARRATOR] " + line.Text
	case narrative.SpeakerNPC:
		return "[NPC: " + line.Name + "] " + line.Text
	case narrative.SpeakerParty:
		return "[PARTY: " + line.Name + "] " + line.Text
	default:
		return line.Text
	}
}

func tailLines(lines []narrative.SpeakerLine, limit int) []narrative.SpeakerLine {
	if limit <= 0 || len(lines) <= limit {
		return lines
	}
	return lines[len(lines)-limit:]
}
