package main

import "context"

// Source is the chat platform the site content is read from.
// Every call blocks on the network; errors are fatal to the run.
type Source interface {
	// ChannelMessages returns up to limit messages, newest first
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	// Forum returns the forum channel with its available tags
	Forum(ctx context.Context, forumID string) (*Forum, error)
	// ForumThreads returns active threads followed by archived ones
	ForumThreads(ctx context.Context, forum *Forum) ([]Thread, error)
	// StarterMessage returns the message that opened the thread
	StarterMessage(ctx context.Context, thread Thread) (*Message, error)
	// ThreadMessages returns up to limit messages of a thread, newest first
	ThreadMessages(ctx context.Context, threadID string, limit int) ([]Message, error)
}
