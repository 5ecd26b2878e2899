// processor.go
package main

import (
	"context"
	"fmt"
	"log"
)

const (
	blogFile     = "blog.json"
	projectsFile = "projects.json"

	blogImagePrefix   = "blog_"
	updateImagePrefix = "update_"
)

// ImageSaver stores an attachment and returns the path the site links to
type ImageSaver interface {
	Save(ctx context.Context, rawURL, id, prefix string) (string, bool)
}

// sourceIDs are the channels a run reads from
type sourceIDs struct {
	BlogChannelID   string
	ProjectsForumID string
}

// SiteGenerator handles the main workflow
type SiteGenerator struct {
	source   Source
	images   ImageSaver
	settings *Settings
	ids      sourceIDs

	skipBlog     bool
	skipProjects bool
}

// NewSiteGenerator wires a source and an image saver to the output settings
func NewSiteGenerator(source Source, images ImageSaver, settings *Settings, blogChannelID, projectsForumID string) *SiteGenerator {
	return &SiteGenerator{
		source:   source,
		images:   images,
		settings: settings,
		ids: sourceIDs{
			BlogChannelID:   blogChannelID,
			ProjectsForumID: projectsForumID,
		},
	}
}

// SetSkips disables one of the two halves of the run
func (g *SiteGenerator) SetSkips(blog, projects bool) {
	g.skipBlog = blog
	g.skipProjects = projects
}

// Run generates every output file. Source errors abort the run.
func (g *SiteGenerator) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{}

	if !g.skipBlog {
		written, err := g.GenerateBlog(ctx)
		if err != nil {
			return nil, fmt.Errorf("generating blog: %w", err)
		}
		summary.BlogEntries = written
	}

	if !g.skipProjects {
		written, results, err := g.GenerateProjects(ctx)
		if err != nil {
			return nil, fmt.Errorf("generating projects: %w", err)
		}
		summary.Projects = written
		summary.Results = results
	}

	return summary, nil
}

// GenerateBlog extracts blog entries and rewrites blog.json,
// returning how many entries the file now holds.
func (g *SiteGenerator) GenerateBlog(ctx context.Context) (int, error) {
	log.Printf("→ Fetching blog channel %s", g.ids.BlogChannelID)
	messages, err := g.source.ChannelMessages(ctx, g.ids.BlogChannelID, g.settings.Fetch.BlogLimit)
	if err != nil {
		return 0, err
	}

	fresh := make([]BlogEntry, 0, len(messages))
	for _, msg := range messages {
		entry, ok := ParseBlogEntry(msg, g.settings)
		if !ok {
			debugLog("skipping blog message %s", msg.ID)
			continue
		}
		if len(msg.Attachments) > 0 {
			if imgPath, ok := g.images.Save(ctx, msg.Attachments[0].URL, msg.ID, blogImagePrefix); ok {
				entry.Image = &imgPath
			}
		}
		fresh = append(fresh, entry)
	}

	path := g.settings.OutputPath(blogFile)
	written, err := MergeAndWrite(path, fresh, BlogIdentity)
	if err != nil {
		return 0, err
	}

	log.Printf("✓ Blog generated: %d articles (%d fresh, %d kept)", written, len(fresh), written-len(fresh))
	return written, nil
}

// GenerateProjects writes one detail file per forum thread and then projects.json
func (g *SiteGenerator) GenerateProjects(ctx context.Context) (int, []ProcessingResult, error) {
	log.Printf("→ Fetching project forum %s", g.ids.ProjectsForumID)
	forum, err := g.source.Forum(ctx, g.ids.ProjectsForumID)
	if err != nil {
		return 0, nil, err
	}

	threads, err := g.source.ForumThreads(ctx, forum)
	if err != nil {
		return 0, nil, err
	}

	log.Printf("Processing %d threads...", len(threads))

	fresh := make([]ProjectSummary, 0, len(threads))
	results := make([]ProcessingResult, 0, len(threads))
	for i, thread := range threads {
		log.Printf("[%d/%d] Processing: %s", i+1, len(threads), thread.Name)
		summary, result, err := g.ProcessThread(ctx, thread, forum)
		if err != nil {
			return 0, nil, err
		}
		results = append(results, result)

		if result.Status == StatusSkipped {
			log.Printf("Skipping %q: %v", thread.Name, result.Error)
			continue
		}
		fresh = append(fresh, *summary)
		log.Printf("✓ Generated: %s (%d updates)", result.DetailFile, result.Updates)
	}

	path := g.settings.OutputPath(projectsFile)
	written, err := MergeAndWrite(path, fresh, ProjectIdentity)
	if err != nil {
		return 0, nil, err
	}

	log.Printf("✓ Projects generated: %d projects (%d fresh, %d kept)", written, len(fresh), written-len(fresh))
	return written, results, nil
}

// ProcessThread builds a project card and its detail file.
// A thread without a name or starter message is skipped, not failed.
func (g *SiteGenerator) ProcessThread(ctx context.Context, thread Thread, forum *Forum) (*ProjectSummary, ProcessingResult, error) {
	result := ProcessingResult{Title: thread.Name}

	if thread.Name == "" {
		result.Status = StatusSkipped
		result.Error = fmt.Errorf("thread %s has no name", thread.ID)
		return nil, result, nil
	}

	starter, err := g.source.StarterMessage(ctx, thread)
	if err != nil {
		result.Status = StatusSkipped
		result.Error = fmt.Errorf("no starter message: %w", err)
		return nil, result, nil
	}
	if starter == nil {
		result.Status = StatusSkipped
		result.Error = fmt.Errorf("no starter message")
		return nil, result, nil
	}

	summary := BuildProjectSummary(thread, starter, forum, g.settings)
	result.DetailFile = summary.DetailFile

	messages, err := g.source.ThreadMessages(ctx, thread.ID, g.settings.Fetch.UpdatesLimit)
	if err != nil {
		return nil, result, err
	}

	fresh := make([]ProjectUpdate, 0, len(messages))
	for _, msg := range messages {
		if !isUpdateMessage(msg, starter.ID) {
			continue
		}
		imgPath := ""
		if len(msg.Attachments) > 0 {
			if saved, ok := g.images.Save(ctx, msg.Attachments[0].URL, msg.ID, updateImagePrefix); ok {
				imgPath = saved
			}
		}
		fresh = append(fresh, BuildProjectUpdate(msg, imgPath, g.settings))
	}

	written, err := MergeAndWrite(g.settings.OutputPath(summary.DetailFile), fresh, UpdateIdentity)
	if err != nil {
		return nil, result, err
	}

	result.Status = StatusSuccess
	result.Updates = written
	return &summary, result, nil
}
