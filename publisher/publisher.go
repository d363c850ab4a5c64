package publisher

import (
	"context"
	"fmt"
	"log"
	"time"

	"comic-bridge/models"

	"github.com/bwmarrin/discordgo"
)

// Session is the capability set the publisher needs from the Discord
// connection. Connection management, heartbeat and reconnection stay behind
// this interface.
type Session interface {
	// AwaitReady blocks until the gateway session is ready or ctx is done.
	AwaitReady(ctx context.Context) error
	// Channel returns a channel by ID.
	Channel(id string) (*discordgo.Channel, error)
	// FetchThread returns a thread by ID. A deleted thread is reported as
	// an error wrapping ErrThreadNotFound.
	FetchThread(id string) (*discordgo.Channel, error)
	// CreateThread creates a forum thread with its initial message.
	CreateThread(channelID, name, content string, files []*discordgo.File, tagIDs []string) (*discordgo.Channel, error)
	// SendMessage sends a plain text message to a channel or thread.
	SendMessage(channelID, content string) error
}

// MappingStore is the durable comic_id -> thread_id index.
type MappingStore interface {
	Lookup(comicID string) (threadID string, found bool, err error)
	Upsert(comicID, threadID, title string) error
}

// Publisher turns publish requests into forum threads. Requests carrying a
// comic_id are deduplicated against the mapping store: a live mapped thread
// receives a reply instead of a duplicate thread, and a stale mapping (thread
// deleted remotely) is replaced by a fresh thread.
type Publisher struct {
	session      Session
	store        MappingStore
	channelID    string
	readyTimeout time.Duration
	locks        *keyedMutex
	now          func() time.Time
}

// New creates a Publisher targeting the given forum channel. readyTimeout
// bounds how long a single request waits for the session to become ready,
// independently of the caller's overall deadline.
func New(session Session, store MappingStore, channelID string, readyTimeout time.Duration) *Publisher {
	return &Publisher{
		session:      session,
		store:        store,
		channelID:    channelID,
		readyTimeout: readyTimeout,
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
}

// Publish runs one request through the full flow: wait for readiness, dedup
// lookup, reply or create, persist the mapping. Concurrent requests for the
// same comic_id serialize on a per-key lock so a previously unseen comic_id
// produces exactly one thread.
func (p *Publisher) Publish(ctx context.Context, req *models.PublishRequest) (*models.PublishResult, error) {
	if req.ComicID != "" {
		unlock := p.locks.Lock(req.ComicID)
		defer unlock()
	}

	readyCtx := ctx
	if p.readyTimeout > 0 {
		var cancel context.CancelFunc
		readyCtx, cancel = context.WithTimeout(ctx, p.readyTimeout)
		defer cancel()
	}
	if err := p.session.AwaitReady(readyCtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotReady, err)
	}

	if req.ComicID != "" {
		if result := p.tryReply(req); result != nil {
			return result, nil
		}
	}

	return p.createThread(req)
}

// tryReply handles the dedup path. It returns a non-nil result only when a
// reply was delivered to a live mapped thread; every failure falls through to
// thread creation. A store read failure is treated as "no mapping" and a
// deleted remote thread as a stale mapping to be replaced.
func (p *Publisher) tryReply(req *models.PublishRequest) *models.PublishResult {
	threadID, found, err := p.store.Lookup(req.ComicID)
	if err != nil {
		log.Printf("Mapping lookup failed for comic %s, proceeding to create: %v", req.ComicID, err)
		return nil
	}
	if !found {
		return nil
	}

	thread, err := p.session.FetchThread(threadID)
	if err != nil {
		// A missing thread means the mapping is stale and will be
		// replaced. Other errors also fall through so the request is
		// never blocked on a broken reply path.
		log.Printf("Fetch of mapped thread %s for comic %s failed, creating a new thread: %v", threadID, req.ComicID, err)
		return nil
	}

	notice := fmt.Sprintf("该作品已于 %s 重新发布，内容已更新。", p.now().Format("2006-01-02"))
	if err := p.session.SendMessage(thread.ID, notice); err != nil {
		log.Printf("Reply to thread %s failed, creating a new thread: %v", thread.ID, err)
		return nil
	}

	log.Printf("Replied to existing thread %s for comic %s", thread.ID, req.ComicID)
	return &models.PublishResult{
		Status:   "replied",
		ThreadID: thread.ID,
		URL:      threadURL(thread),
	}
}

func (p *Publisher) createThread(req *models.PublishRequest) (*models.PublishResult, error) {
	channel, err := p.session.Channel(p.channelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	if channel.Type != discordgo.ChannelTypeGuildForum {
		return nil, fmt.Errorf("%w: channel %s", ErrNotForumChannel, p.channelID)
	}

	tagIDs := resolveTags(channel.AvailableTags, req.Tags)

	// Every handle opened here is released before Publish returns, no
	// matter which step fails.
	attachments, err := openAttachments(req.Cover, req.Attachment)
	if err != nil {
		return nil, err
	}
	defer attachments.Close()

	thread, err := p.session.CreateThread(channel.ID, req.Title, req.Content, attachments.files, tagIDs)
	if err != nil {
		return nil, &PlatformError{Op: "create thread", Err: err}
	}

	if req.ComicID != "" {
		// The remote thread already exists at this point; a failed
		// index write must not fail the publish.
		if err := p.store.Upsert(req.ComicID, thread.ID, req.Title); err != nil {
			log.Printf("Failed to persist mapping %s -> %s: %v", req.ComicID, thread.ID, err)
		}
	}

	log.Printf("Created thread %s (%s) in channel %s", thread.ID, req.Title, channel.ID)
	return &models.PublishResult{
		Status:   "success",
		ThreadID: thread.ID,
		URL:      threadURL(thread),
	}, nil
}

func threadURL(thread *discordgo.Channel) string {
	guildID := thread.GuildID
	if guildID == "" {
		guildID = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s", guildID, thread.ID)
}
