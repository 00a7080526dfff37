package prompts

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultWorld is the built-in setting used when no world file is
// configured.
func DefaultWorld() *World {
	return &World{
		Title:       "The Shattered Realm",
		Description: "A low-fantasy frontier where old empires have collapsed and scattered settlements survive between the ruins.",
		Themes:      []string{"exploration", "survival", "found family"},
		Tone:        []string{"grounded", "wry", "occasionally grim"},
		NarratorRole: "An omniscient but restrained narrator. Describe what the " +
			"player perceives; let consequences emerge from events.",
		StyleGuidelines: []string{
			"Keep narration to a few short paragraphs per turn.",
			"Give every named NPC a distinct voice.",
		},
	}
}

// LoadWorldFile reads a world definition from a JSON file.
func LoadWorldFile(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	var w World
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse world file: %w", err)
	}
	if w.Title == "" {
		return nil, fmt.Errorf("world file %s has no title", path)
	}
	return &w, nil
}
