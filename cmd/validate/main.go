// Command validate checks world definition files before they are
// served. It accepts file paths or directories; directories are
// scanned for .json files.
//
//	validate worlds/shattered-realm.json
//	validate worlds/
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/narrative-engine/pkg/prompts"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: validate <file or directory> ...")
		os.Exit(2)
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
				files = append(files, filepath.Join(arg, entry.Name()))
			}
		}
	}

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no world files found")
		os.Exit(1)
	}

	failed := 0
	for _, file := range files {
		world, err := prompts.LoadWorldFile(file)
		if err != nil {
			fmt.Printf("FAIL  %s: %v\n", file, err)
			failed++
			continue
		}
		var notes []string
		if world.Description == "" {
			notes = append(notes, "no description")
		}
		if len(world.Themes) == 0 {
			notes = append(notes, "no themes")
		}
		if len(notes) > 0 {
			fmt.Printf("OK    %s (%s) [%s]\n", file, world.Title, strings.Join(notes, ", "))
			continue
		}
		fmt.Printf("OK    %s (%s)\n", file, world.Title)
	}

	fmt.Printf("\n%d file(s) checked, %d failed\n", len(files), failed)
	if failed > 0 {
		os.Exit(1)
	}
}
