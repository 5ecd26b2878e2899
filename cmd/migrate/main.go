package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const detailSuffix = "_detail.json"

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <orphans|dedupe> <output-directory>")
	}

	command := os.Args[1]
	outputDir := os.Args[2]

	switch command {
	case "orphans":
		if err := removeOrphans(outputDir, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
			log.Fatal(err)
		}
	case "dedupe":
		if err := dedupeAll(outputDir); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

// recordKey holds the identity fields of any generated record
type recordKey struct {
	Title      *string `json:"title"`
	Version    *string `json:"version"`
	DetailFile string  `json:"detailFile"`
}

func readRecords(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

func writeRecords(path string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"), 0644)
}

// referencedDetailFiles lists the detail files named in projects.json
func referencedDetailFiles(outputDir string) (map[string]bool, error) {
	records, err := readRecords(filepath.Join(outputDir, "projects.json"))
	if err != nil {
		return nil, err
	}
	refs := make(map[string]bool, len(records))
	for _, raw := range records {
		var k recordKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, fmt.Errorf("parsing project entry: %w", err)
		}
		if k.DetailFile != "" {
			refs[k.DetailFile] = true
		}
	}
	return refs, nil
}

// findOrphans returns detail files no project references, sorted by name
func findOrphans(outputDir string) ([]string, error) {
	refs, err := referencedDetailFiles(outputDir)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(outputDir, "*"+detailSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing detail files: %w", err)
	}
	var orphans []string
	for _, f := range files {
		if !refs[filepath.Base(f)] {
			orphans = append(orphans, f)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

func removeOrphans(outputDir string, reader *bufio.Reader, out io.Writer) error {
	orphans, err := findOrphans(outputDir)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		fmt.Fprintln(out, "No orphaned detail files")
		return nil
	}

	fmt.Fprintf(out, "Found %d detail files not referenced by projects.json:\n", len(orphans))
	totalRemoved := 0
	for _, file := range orphans {
		fileName := filepath.Base(file)
		if confirmDelete(reader, out, file) {
			if err := os.Remove(file); err != nil {
				log.Printf("Error removing %s: %v", file, err)
			} else {
				totalRemoved++
				fmt.Fprintf(out, "  REMOVED: %s\n", fileName)
			}
		} else {
			fmt.Fprintf(out, "  SKIP: %s\n", fileName)
		}
	}

	fmt.Fprintf(out, "\nRemoved %d orphaned files\n", totalRemoved)
	return nil
}

// dedupeFile keeps the first record per identity key and reports how many were dropped
func dedupeFile(path string, keyOf func(recordKey) *string) (int, error) {
	records, err := readRecords(path)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(records))
	kept := make([]json.RawMessage, 0, len(records))
	for _, raw := range records {
		var k recordKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return 0, fmt.Errorf("parsing record in %s: %w", path, err)
		}
		key := keyOf(k)
		if key != nil {
			if seen[*key] {
				continue
			}
			seen[*key] = true
		}
		kept = append(kept, raw)
	}

	dropped := len(records) - len(kept)
	if dropped == 0 {
		return 0, nil
	}
	return dropped, writeRecords(path, kept)
}

func dedupeAll(outputDir string) error {
	byTitle := func(k recordKey) *string { return k.Title }
	byVersion := func(k recordKey) *string { return k.Version }

	targets := map[string]func(recordKey) *string{
		filepath.Join(outputDir, "blog.json"):     byTitle,
		filepath.Join(outputDir, "projects.json"): byTitle,
	}
	details, err := filepath.Glob(filepath.Join(outputDir, "*"+detailSuffix))
	if err != nil {
		return fmt.Errorf("listing detail files: %w", err)
	}
	for _, d := range details {
		targets[d] = byVersion
	}

	paths := make([]string, 0, len(targets))
	for p := range targets {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		dropped, err := dedupeFile(p, targets[p])
		if err != nil {
			log.Printf("Error processing %s: %v", p, err)
			continue
		}
		if dropped > 0 {
			log.Printf("Removed %d duplicates from %s", dropped, filepath.Base(p))
		}
	}
	return nil
}

func confirmDelete(reader *bufio.Reader, out io.Writer, path string) bool {
	for {
		fmt.Fprintf(out, "  DELETE %s? [y/N]: ", filepath.Base(path))
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			if err != io.EOF {
				log.Printf("Error reading input: %v", err)
			}
			return false
		}
		response := strings.ToLower(strings.TrimSpace(input))
		switch response {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Fprintln(out, "  Please enter y or n.")
		}
	}
}
