package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Decode turns the raw EVENTS section of a narrator response into typed
// events. Local models produce sloppy output, so decode is deliberately
// lenient: markdown fences and an "EVENTS:" prefix are stripped, an
// array embedded in surrounding prose is extracted, "- type { k: v }"
// bullet lines and single bare-word events are recovered. Individual
// objects that fail to decode as their declared variant become
// TypeUnknown events rather than aborting the batch; Decode errors only
// when no array of objects can be recovered at all.
func Decode(payload []byte) ([]Event, error) {
	normalized := normalizePayload(string(payload))
	if strings.TrimSpace(normalized) == "" {
		return []Event{}, nil
	}

	items, err := decodeItems(normalized)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(items))
	for _, item := range items {
		events = append(events, decodeItem(item))
	}
	return events, nil
}

// decodeItem decodes one raw object, demoting failures to TypeUnknown
// with the original tag and payload preserved.
func decodeItem(item json.RawMessage) Event {
	var e Event
	if err := json.Unmarshal(item, &e); err != nil {
		return unknownEvent(item)
	}
	if err := e.Validate(); err != nil {
		return unknownEvent(item)
	}
	if e.Type == TypeUnknown {
		// A literal "unknown" tag still carries its raw payload.
		return unknownEvent(item)
	}
	return e
}

func unknownEvent(item json.RawMessage) Event {
	var probe struct {
		Type string `json:"type"`
	}
	rawType := "unknown"
	if err := json.Unmarshal(item, &probe); err == nil && probe.Type != "" {
		rawType = probe.Type
	}
	return Event{Type: TypeUnknown, RawType: rawType, Raw: item}
}

// decodeItems recovers a slice of raw objects from the normalized
// payload, trying progressively looser strategies.
func decodeItems(s string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	directErr := json.Unmarshal([]byte(s), &items)
	if directErr == nil {
		return items, nil
	}

	// {"events": [...]} wrapper
	var wrapper struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal([]byte(s), &wrapper); err == nil && wrapper.Events != nil {
		return wrapper.Events, nil
	}

	// Array embedded in surrounding prose
	if extracted, ok := extractArray(s); ok {
		if err := json.Unmarshal([]byte(extracted), &items); err == nil {
			return items, nil
		}
	}

	// "- type { k: v, ... }" bullet lines
	if items, ok := parseLooseEvents(s); ok {
		return items, nil
	}

	// A single bare word is treated as a typed event with no fields.
	if item, ok := parseBareWordEvent(s); ok {
		return []json.RawMessage{item}, nil
	}

	return nil, fmt.Errorf("events payload is not a JSON array: %w", directErr)
}

// normalizePayload strips an EVENTS: prefix and markdown code fences.
func normalizePayload(raw string) string {
	s := strings.TrimSpace(raw)

	if pos := strings.Index(s, "EVENTS:"); pos >= 0 {
		s = s[pos+len("EVENTS:"):]
	}
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		nl := strings.IndexByte(s, '\n')
		if nl < 0 {
			return "[]"
		}
		s = s[nl+1:]
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

func extractArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// parseLooseEvents handles models that emit bullet lists instead of
// JSON, e.g. `- add_item { item_id: "rope", quantity: 2 }`.
func parseLooseEvents(s string) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	for line := range strings.Lines(s) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rest, ok := strings.CutPrefix(line, "-")
		if !ok {
			continue
		}
		eventType, body, ok := strings.Cut(strings.TrimSpace(rest), "{")
		if !ok {
			continue
		}

		obj := map[string]any{"type": strings.TrimSpace(eventType)}
		if end := strings.LastIndexByte(body, '}'); end >= 0 {
			body = body[:end]
		}
		for _, pair := range splitPairs(body) {
			k, v, ok := strings.Cut(pair, ":")
			if !ok {
				continue
			}
			key := strings.Trim(strings.TrimSpace(k), `"`)
			obj[key] = parseLooseValue(strings.TrimSpace(v))
		}

		data, err := json.Marshal(obj)
		if err != nil {
			continue
		}
		items = append(items, data)
	}
	return items, len(items) > 0
}

// parseBareWordEvent accepts a lone token such as "rest" as an event
// with only a type.
func parseBareWordEvent(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsFunc(s, unicode.IsSpace) {
		return nil, false
	}
	if strings.ContainsAny(s, "[{:") {
		return nil, false
	}
	data, err := json.Marshal(map[string]string{"type": s})
	if err != nil {
		return nil, false
	}
	return data, true
}

// splitPairs splits "k: v, k2: v2" on commas outside quoted strings.
func splitPairs(s string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	escape := false
	for _, ch := range s {
		if escape {
			current.WriteRune(ch)
			escape = false
			continue
		}
		switch {
		case ch == '\\':
			current.WriteRune(ch)
			escape = true
		case ch == '"':
			inQuotes = !inQuotes
			current.WriteRune(ch)
		case ch == ',' && !inQuotes:
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		parts = append(parts, trimmed)
	}
	return parts
}

func parseLooseValue(raw string) any {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), ",")
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return raw[1 : len(raw)-1]
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}
