// Package narrative splits freeform narrator output into
// speaker-tagged lines. It shares the external trust boundary with the
// event decoder but is otherwise independent: segmentation is pure,
// stateless and never drops an input line.
package narrative

import "strings"

// Speaker classifies who delivers a line.
type Speaker string

const (
	SpeakerNarrator Speaker = "narrator"
	SpeakerNPC      Speaker = "npc"
	SpeakerParty    Speaker = "party"
)

// SpeakerLine is one attributed line of narration or dialogue. Name is
// empty for narrator lines.
type SpeakerLine struct {
	Speaker Speaker `json:"speaker"`
	Name    string  `json:"name,omitempty"`
	Text    string  `json:"text"`
}

// Segment classifies each non-empty line of text by its leading bracket
// tag. Recognized forms:
//
//	[NARRATOR] text            narrator line
//	[NPC: Name] text           NPC line named Name
//	[PARTY: Name] text         party-member line named Name
//	[Tag] text                 NPC line named Tag, for any other tag
//
// The generic [Tag] form excludes "narrator" and "system" tags
// (case-insensitive): models frequently label NPC speech with the
// character's bare name. Anything else, including malformed brackets,
// falls back to a narrator line carrying the trimmed text verbatim.
// Blank lines produce no output. Ordering is preserved.
func Segment(text string) []SpeakerLine {
	var lines []SpeakerLine

	for raw := range strings.Lines(text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(line, "[NARRATOR]"); ok {
			lines = append(lines, SpeakerLine{
				Speaker: SpeakerNarrator,
				Text:    strings.TrimSpace(rest),
			})
			continue
		}

		if l, ok := namedLine(line, "[NPC:", SpeakerNPC); ok {
			lines = append(lines, l)
			continue
		}
		if l, ok := namedLine(line, "[PARTY:", SpeakerParty); ok {
			lines = append(lines, l)
			continue
		}
		if l, ok := genericTagLine(line); ok {
			lines = append(lines, l)
			continue
		}

		lines = append(lines, SpeakerLine{
			Speaker: SpeakerNarrator,
			Text:    line,
		})
	}
	return lines
}

// namedLine parses "[NPC: Name] text" style tags. The first close
// bracket after the colon delimits the name.
func namedLine(line, prefix string, speaker Speaker) (SpeakerLine, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return SpeakerLine{}, false
	}
	name, text, ok := strings.Cut(rest, "]")
	if !ok {
		return SpeakerLine{}, false
	}
	return SpeakerLine{
		Speaker: speaker,
		Name:    strings.TrimSpace(name),
		Text:    strings.TrimSpace(text),
	}, true
}

// genericTagLine treats "[Guard] Halt!" as NPC speech labeled by the
// tag. Narrator and system tags are excluded so they keep their usual
// handling, and empty tags or bodies fall through to the narrator
// fallback.
func genericTagLine(line string) (SpeakerLine, bool) {
	rest, ok := strings.CutPrefix(line, "[")
	if !ok {
		return SpeakerLine{}, false
	}
	tag, body, ok := strings.Cut(rest, "]")
	if !ok {
		return SpeakerLine{}, false
	}
	tag = strings.TrimSpace(tag)
	body = strings.TrimSpace(body)
	if tag == "" || body == "" {
		return SpeakerLine{}, false
	}
	if strings.EqualFold(tag, "narrator") || strings.EqualFold(tag, "system") {
		return SpeakerLine{}, false
	}
	return SpeakerLine{
		Speaker: SpeakerNPC,
		Name:    tag,
		Text:    body,
	}, true
}
