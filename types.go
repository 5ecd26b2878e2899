package main

import "time"

// BlogEntry is one card on the blog page
type BlogEntry struct {
	Title string  `json:"title"`
	Tag   string  `json:"tag"`
	Desc  string  `json:"desc"`
	Link  string  `json:"link"`
	Date  string  `json:"date"`
	Image *string `json:"image"`
}

// ProjectSummary is one card on the projects page
type ProjectSummary struct {
	Title      string `json:"title"`
	Version    string `json:"version"`
	Date       string `json:"date"`
	Desc       string `json:"desc"`
	Link       string `json:"link"`
	Icon       string `json:"icon"`
	Style      string `json:"style"`
	BtnText    string `json:"btnText"`
	DetailFile string `json:"detailFile"`
}

// ProjectUpdate is one entry of a project's changelog
type ProjectUpdate struct {
	Date    string `json:"date"`
	Version string `json:"version"`
	Content string `json:"content"`
}

// BlogKey identifies a blog entry across runs
func BlogKey(e BlogEntry) string { return e.Title }

// ProjectKey identifies a project across runs
func ProjectKey(p ProjectSummary) string { return p.Title }

// UpdateKey identifies a project update across runs.
// The label is free text, so two updates sharing a label replace each other.
func UpdateKey(u ProjectUpdate) string { return u.Version }

// Identity pairs a record's key with the JSON field it is persisted under,
// so records from a previous run can be matched without decoding them.
type Identity[T any] struct {
	Key   func(T) string
	Field string
}

var (
	BlogIdentity    = Identity[BlogEntry]{Key: BlogKey, Field: "title"}
	ProjectIdentity = Identity[ProjectSummary]{Key: ProjectKey, Field: "title"}
	UpdateIdentity  = Identity[ProjectUpdate]{Key: UpdateKey, Field: "version"}
)

// Message is a chat message reduced to what the generator reads
type Message struct {
	ID          string
	Content     string
	AuthorBot   bool
	CreatedAt   time.Time
	Attachments []Attachment
}

// Attachment is a file uploaded with a message
type Attachment struct {
	URL      string
	Filename string
}

// Thread is a forum post
type Thread struct {
	ID          string
	Name        string
	CreatedAt   time.Time
	AppliedTags []string
}

// Forum is a forum channel with its tag names keyed by tag ID
type Forum struct {
	ID      string
	GuildID string
	Tags    map[string]string
}

// ProcessingStatus represents the outcome status of processing a project thread
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "success"
	StatusSkipped ProcessingStatus = "skipped"
)

// ProcessingResult tracks the outcome of processing each project thread
type ProcessingResult struct {
	Title      string
	Status     ProcessingStatus
	DetailFile string
	Updates    int
	Error      error
}

// RunSummary is what a generation run produced
type RunSummary struct {
	BlogEntries int
	Projects    int
	Results     []ProcessingResult
}
