package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"comic-bridge/config"
	"comic-bridge/publisher"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	xproxy "golang.org/x/net/proxy"
)

// Bot encapsulates the Discord session and its readiness state. The gateway
// connection, heartbeat and reconnection are handled by discordgo; Bot only
// tracks whether the session is currently usable and exposes the small set of
// channel/thread operations the publisher needs.
type Bot struct {
	Session *discordgo.Session

	mu      sync.Mutex
	ready   bool
	readyCh chan struct{} // closed when ready flips to true
}

var _ publisher.Session = (*Bot)(nil)

// NewBot creates and initializes a new Bot instance.
func NewBot(cfg *config.Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds

	if cfg.ProxyURL != "" {
		if err := configureProxy(dg, cfg.ProxyURL); err != nil {
			return nil, fmt.Errorf("error configuring proxy: %w", err)
		}
		log.Printf("Discord session will use proxy %s", cfg.ProxyURL)
	}

	b := &Bot{
		Session: dg,
		readyCh: make(chan struct{}),
	}

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
		b.setReady(true)
	})
	dg.AddHandler(func(s *discordgo.Session, d *discordgo.Disconnect) {
		log.Println("Gateway disconnected; session is no longer ready.")
		b.setReady(false)
	})
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Resumed) {
		log.Println("Gateway session resumed.")
		b.setReady(true)
	})

	return b, nil
}

// configureProxy routes both the REST client and the gateway websocket
// through the given proxy URL (http, https or socks5).
func configureProxy(dg *discordgo.Session, proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch u.Scheme {
	case "socks5", "socks5h":
		dialer, err := xproxy.FromURL(u, xproxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to build socks5 dialer: %w", err)
		}
		transport := &http.Transport{}
		if cd, ok := dialer.(xproxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.Dial = dialer.Dial
		}
		dg.Client = &http.Client{Timeout: 20 * time.Second, Transport: transport}
		dg.Dialer = &websocket.Dialer{
			NetDial:          dialer.Dial,
			HandshakeTimeout: 45 * time.Second,
		}
	default:
		dg.Client = &http.Client{
			Timeout:   20 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyURL(u)},
		}
		dg.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyURL(u),
			HandshakeTimeout: 45 * time.Second,
		}
	}
	return nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	b.setReady(false)
	if b.Session != nil {
		b.Session.Close()
	}
	log.Println("Bot stopped gracefully.")
}

func (b *Bot) setReady(ready bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ready == b.ready {
		return
	}
	b.ready = ready
	if ready {
		close(b.readyCh)
	} else {
		b.readyCh = make(chan struct{})
	}
}

// IsReady reports whether the session is currently authenticated.
func (b *Bot) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// AwaitReady blocks until the session is ready or ctx is done.
func (b *Bot) AwaitReady(ctx context.Context) error {
	for {
		b.mu.Lock()
		if b.ready {
			b.mu.Unlock()
			return nil
		}
		ch := b.readyCh
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Channel returns a channel by ID, preferring the gateway state cache.
func (b *Bot) Channel(id string) (*discordgo.Channel, error) {
	if ch, err := b.Session.State.Channel(id); err == nil {
		return ch, nil
	}
	return b.Session.Channel(id)
}

// FetchThread returns a thread by ID. A deleted thread (or an ID that no
// longer resolves to a thread) is reported as publisher.ErrThreadNotFound so
// the caller can treat the mapping as stale.
func (b *Bot) FetchThread(id string) (*discordgo.Channel, error) {
	ch, err := b.Session.Channel(id)
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return nil, fmt.Errorf("%w: %s", publisher.ErrThreadNotFound, id)
		}
		return nil, err
	}
	if !ch.IsThread() {
		return nil, fmt.Errorf("%w: %s is not a thread", publisher.ErrThreadNotFound, id)
	}
	return ch, nil
}

// CreateThread creates a forum thread with its initial message, files and
// applied tags.
func (b *Bot) CreateThread(channelID, name, content string, files []*discordgo.File, tagIDs []string) (*discordgo.Channel, error) {
	thread, err := b.Session.ForumThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:        name,
		AppliedTags: tagIDs,
	}, &discordgo.MessageSend{
		Content: content,
		Files:   files,
	})
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// SendMessage sends a plain text message to a channel or thread.
func (b *Bot) SendMessage(channelID, content string) error {
	_, err := b.Session.ChannelMessageSend(channelID, content)
	return err
}
