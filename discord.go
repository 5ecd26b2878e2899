package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord caps message and archived thread pages at 100
const discordPageSize = 100

// discordSource reads channels and forums through a bot session
type discordSource struct {
	session *discordgo.Session
}

// NewDiscordSource creates a bot session; call Open before fetching
func NewDiscordSource(token string) (*discordSource, error) {
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	session, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	return &discordSource{session: session}, nil
}

// Open connects to the gateway and waits for the Ready event
func (d *discordSource) Open(ctx context.Context) error {
	ready := make(chan *discordgo.Ready, 1)
	d.session.AddHandlerOnce(func(_ *discordgo.Session, r *discordgo.Ready) {
		ready <- r
	})

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	select {
	case r := <-ready:
		log.Printf("Bot logged in as %s", r.User.String())
		return nil
	case <-ctx.Done():
		d.session.Close()
		return fmt.Errorf("waiting for discord ready: %w", ctx.Err())
	}
}

// Close ends the gateway session
func (d *discordSource) Close() error {
	return d.session.Close()
}

func (d *discordSource) ChannelMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	var messages []Message
	beforeID := ""
	for len(messages) < limit {
		page := min(limit-len(messages), discordPageSize)
		batch, err := d.session.ChannelMessages(channelID, page, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetching messages of %s: %w", channelID, err)
		}
		for _, m := range batch {
			messages = append(messages, convertMessage(m))
		}
		if len(batch) < page {
			break
		}
		beforeID = batch[len(batch)-1].ID
	}
	debugLog("fetched %d messages from %s", len(messages), channelID)
	return messages, nil
}

func (d *discordSource) Forum(ctx context.Context, forumID string) (*Forum, error) {
	channel, err := d.session.Channel(forumID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching forum %s: %w", forumID, err)
	}
	if channel.Type != discordgo.ChannelTypeGuildForum {
		log.Printf("Warning: channel %s is not a forum (type %d)", forumID, channel.Type)
	}
	return convertForum(channel), nil
}

func (d *discordSource) ForumThreads(ctx context.Context, forum *Forum) ([]Thread, error) {
	active, err := d.session.GuildThreadsActive(forum.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching active threads of %s: %w", forum.ID, err)
	}

	seen := make(map[string]bool)
	var threads []Thread
	for _, ch := range active.Threads {
		// the active listing is guild wide
		if ch.ParentID != forum.ID || seen[ch.ID] {
			continue
		}
		seen[ch.ID] = true
		threads = append(threads, convertThread(ch))
	}

	var before *time.Time
	for {
		archived, err := d.session.ThreadsArchived(forum.ID, before, discordPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetching archived threads of %s: %w", forum.ID, err)
		}
		for _, ch := range archived.Threads {
			if seen[ch.ID] {
				continue
			}
			seen[ch.ID] = true
			threads = append(threads, convertThread(ch))
		}
		if !archived.HasMore || len(archived.Threads) == 0 {
			break
		}
		last := archived.Threads[len(archived.Threads)-1]
		if last.ThreadMetadata == nil {
			break
		}
		ts := last.ThreadMetadata.ArchiveTimestamp
		before = &ts
	}

	debugLog("forum %s has %d threads", forum.ID, len(threads))
	return threads, nil
}

// StarterMessage relies on forum threads sharing their ID with the opening message
func (d *discordSource) StarterMessage(ctx context.Context, thread Thread) (*Message, error) {
	m, err := d.session.ChannelMessage(thread.ID, thread.ID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching starter message of %s: %w", thread.Name, err)
	}
	msg := convertMessage(m)
	return &msg, nil
}

func (d *discordSource) ThreadMessages(ctx context.Context, threadID string, limit int) ([]Message, error) {
	return d.ChannelMessages(ctx, threadID, limit)
}

func convertMessage(m *discordgo.Message) Message {
	msg := Message{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
		AuthorBot: m.Author != nil && m.Author.Bot,
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, Attachment{URL: a.URL, Filename: a.Filename})
	}
	return msg
}

func convertThread(ch *discordgo.Channel) Thread {
	created, err := discordgo.SnowflakeTimestamp(ch.ID)
	if err != nil {
		debugLog("thread %s has no usable snowflake: %v", ch.ID, err)
	}
	return Thread{
		ID:          ch.ID,
		Name:        ch.Name,
		CreatedAt:   created,
		AppliedTags: ch.AppliedTags,
	}
}

func convertForum(ch *discordgo.Channel) *Forum {
	forum := &Forum{
		ID:      ch.ID,
		GuildID: ch.GuildID,
		Tags:    make(map[string]string, len(ch.AvailableTags)),
	}
	for _, tag := range ch.AvailableTags {
		forum.Tags[tag.ID] = tag.Name
	}
	return forum
}
