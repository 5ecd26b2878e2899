package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFindOrphans(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "projects.json"), `[{"title": "Focus", "detailFile": "focus_detail.json"}]`)
	writeFile(t, filepath.Join(dir, "focus_detail.json"), `[]`)
	writeFile(t, filepath.Join(dir, "old_detail.json"), `[]`)
	writeFile(t, filepath.Join(dir, "blog.json"), `[]`)

	orphans, err := findOrphans(dir)
	if err != nil {
		t.Fatalf("findOrphans() error = %v", err)
	}
	want := []string{filepath.Join(dir, "old_detail.json")}
	if !reflect.DeepEqual(orphans, want) {
		t.Errorf("findOrphans() = %v, want %v", orphans, want)
	}
}

func TestFindOrphansWithoutProjects(t *testing.T) {
	if _, err := findOrphans(t.TempDir()); err == nil {
		t.Error("findOrphans() succeeded without projects.json")
	}
}

func TestRemoveOrphansConfirmation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "projects.json"), `[]`)
	writeFile(t, filepath.Join(dir, "a_detail.json"), `[]`)
	writeFile(t, filepath.Join(dir, "b_detail.json"), `[]`)

	var out bytes.Buffer
	input := bufio.NewReader(strings.NewReader("maybe\ny\nn\n"))
	if err := removeOrphans(dir, input, &out); err != nil {
		t.Fatalf("removeOrphans() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "a_detail.json")); !os.IsNotExist(err) {
		t.Error("a_detail.json should have been removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "b_detail.json")); err != nil {
		t.Error("b_detail.json should have been kept")
	}
	if !strings.Contains(out.String(), "Please enter y or n.") {
		t.Errorf("invalid answer not re-prompted:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Removed 1 orphaned files") {
		t.Errorf("missing summary:\n%s", out.String())
	}
}

func TestConfirmDeleteEOF(t *testing.T) {
	var out bytes.Buffer
	if confirmDelete(bufio.NewReader(strings.NewReader("")), &out, "x_detail.json") {
		t.Error("confirmDelete() returned true on empty input")
	}
}

func TestDedupeAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blog.json"), `[
    {"title": "A", "tag": "1"},
    {"title": "B", "tag": "2"},
    {"title": "A", "tag": "3"}
]`)
	writeFile(t, filepath.Join(dir, "focus_detail.json"), `[
    {"date": "2024-01-02", "version": "V1", "content": "<b>new</b>"},
    {"date": "2024-01-01", "version": "V1", "content": "old"}
]`)

	if err := dedupeAll(dir); err != nil {
		t.Fatalf("dedupeAll() error = %v", err)
	}

	blog, err := readRecords(filepath.Join(dir, "blog.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(blog) != 2 || !strings.Contains(string(blog[0]), `"tag": "1"`) {
		t.Errorf("blog.json = %s", blog)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "focus_detail.json"))
	content := string(data)
	if strings.Count(content, `"version"`) != 1 || !strings.Contains(content, "<b>new</b>") {
		t.Errorf("detail file = %s", content)
	}
	if !strings.HasPrefix(content, "[\n    {\n        \"date\"") {
		t.Errorf("field order or indentation not preserved:\n%s", content)
	}
}
