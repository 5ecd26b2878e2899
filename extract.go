package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const detailFileSuffix = "_detail.json"

var lowerCaser = cases.Lower(language.Und)

// foldCase lower-cases s without locale specific rules
func foldCase(s string) string {
	return lowerCaser.String(s)
}

// ParseBlogEntry reads a "Title | Tag | Desc | Link" message.
// It reports false for bot messages and messages with fewer than three fields.
func ParseBlogEntry(msg Message, settings *Settings) (BlogEntry, bool) {
	if msg.AuthorBot || !strings.Contains(msg.Content, "|") {
		return BlogEntry{}, false
	}

	parts := strings.Split(msg.Content, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return BlogEntry{}, false
	}

	link := ""
	if len(parts) > 3 {
		link = parts[3]
	}
	if link == "" {
		link = "#"
	}

	return BlogEntry{
		Title: parts[0],
		Tag:   parts[1],
		Desc:  parts[2],
		Link:  link,
		Date:  msg.CreatedAt.Local().Format(settings.Dates.BlogLayout),
	}, true
}

// ParseMetadata reads "Key: value" lines. The first colon splits key from
// value; keys are case-folded and later duplicates win.
func ParseMetadata(content string) map[string]string {
	data := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		data[foldCase(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return data
}

// SanitizeFilename keeps only [a-z0-9] of the lower-cased title.
// Distinct titles may collapse to the same name ("Focus PCSI", "focus-pcsi").
func SanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range foldCase(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetailFileName is the changelog file of a project
func DetailFileName(title string) string {
	return SanitizeFilename(title) + detailFileSuffix
}

// ResolveTagStyle maps the thread's first applied tag to an icon and CSS class
func ResolveTagStyle(thread Thread, forum *Forum, settings *Settings) TagStyle {
	style := TagStyle{Icon: settings.Defaults.Icon, Style: settings.Defaults.Style}
	if len(thread.AppliedTags) == 0 || forum == nil {
		return style
	}
	name, ok := forum.Tags[thread.AppliedTags[0]]
	if !ok {
		return style
	}
	if mapped, ok := settings.Tags[name]; ok {
		return mapped
	}
	return style
}

// BuildProjectSummary turns a thread and its starter message into a project card
func BuildProjectSummary(thread Thread, starter *Message, forum *Forum, settings *Settings) ProjectSummary {
	meta := ParseMetadata(starter.Content)
	style := ResolveTagStyle(thread, forum, settings)
	d := settings.Defaults

	return ProjectSummary{
		Title:      thread.Name,
		Version:    valueOr(meta["version"], d.Version),
		Date:       valueOr(meta["date"], thread.CreatedAt.UTC().Format(settings.Dates.ProjectLayout)),
		Desc:       valueOr(meta["desc"], d.Desc),
		Link:       valueOr(meta["link"], d.Link),
		Icon:       style.Icon,
		Style:      style.Style,
		BtnText:    valueOr(meta["btntext"], d.BtnText),
		DetailFile: DetailFileName(thread.Name),
	}
}

// BuildProjectUpdate splits an update message into its version line and body.
// imagePath, when set, is appended as Markdown.
func BuildProjectUpdate(msg Message, imagePath string, settings *Settings) ProjectUpdate {
	version, rest, _ := strings.Cut(msg.Content, "\n")
	content := rest
	if imagePath != "" {
		content += "\n\n![Image](" + imagePath + ")"
	}
	return ProjectUpdate{
		Date:    msg.CreatedAt.UTC().Format(settings.Dates.ProjectLayout),
		Version: version,
		Content: content,
	}
}

// isUpdateMessage reports whether a thread message belongs in the changelog
func isUpdateMessage(msg Message, starterID string) bool {
	return msg.ID != starterID && !msg.AuthorBot
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
