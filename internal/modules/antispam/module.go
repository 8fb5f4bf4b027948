package antispam

import (
	"strings"
	"sync"
	"time"

	"winr8te-bot/internal/config"
	"winr8te-bot/internal/modules/audit"
	"winr8te-bot/internal/utils"
)

type Reason string

const (
	ReasonNone         Reason = ""
	ReasonBurst        Reason = "message_burst"
	ReasonCrossChannel Reason = "cross_channel_spam"
	ReasonInvite       Reason = "discord_invite"
)

// Message is the slice of an incoming message the detector needs.
type Message struct {
	AuthorID      string
	ChannelID     string
	MessageID     string
	Content       string
	HasMemberRole bool
}

// Verdict says whether a message crossed a spam threshold and which channels
// hold copies that should be cleaned up alongside it.
type Verdict struct {
	Flagged bool
	Reason  Reason
	Copies  []Copy
}

// Copy locates one duplicate of a flagged message in another channel.
type Copy struct {
	ChannelID string
	MessageID string
}

type sighting struct {
	channelID string
	messageID string
	at        time.Time
}

// Module detects spam patterns. It only classifies; banning, message
// deletion and announcements are the caller's job so the detector stays free
// of session state.
type Module struct {
	mu        sync.Mutex
	windows   map[string]*utils.SlidingWindow
	sightings map[string][]sighting
	config    config.AntispamConfig
	audit     *audit.Logger
	clock     func() time.Time
}

func New(cfg config.AntispamConfig, auditLogger *audit.Logger) *Module {
	return &Module{
		windows:   make(map[string]*utils.SlidingWindow),
		sightings: make(map[string][]sighting),
		config:    cfg,
		audit:     auditLogger,
		clock:     time.Now,
	}
}

func (m *Module) WithClock(clock func() time.Time) {
	m.clock = clock
}

// CheckMessage classifies one message. Checks run in severity order: an
// invite from a regular member outranks duplicate detection, which outranks
// a plain burst.
func (m *Module) CheckMessage(msg Message) Verdict {
	now := m.clock()

	if msg.HasMemberRole && utils.ContainsInvite(msg.Content) {
		m.audit.Record(audit.LevelWarn, string(ReasonInvite), msg.AuthorID, "invite link posted")
		return Verdict{Flagged: true, Reason: ReasonInvite}
	}

	if copies := m.trackCrossChannel(msg, now); len(copies) > 0 {
		m.audit.Record(audit.LevelWarn, string(ReasonCrossChannel), msg.AuthorID, "same content across channels")
		return Verdict{Flagged: true, Reason: ReasonCrossChannel, Copies: copies}
	}

	if m.trackBurst(msg.AuthorID, now) {
		m.audit.Record(audit.LevelWarn, string(ReasonBurst), msg.AuthorID, "message burst")
		return Verdict{Flagged: true, Reason: ReasonBurst}
	}

	return Verdict{}
}

// Forget drops all tracked state for a user, typically after they were dealt
// with so stale sightings cannot re-flag them.
func (m *Module) Forget(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, userID)
	for key := range m.sightings {
		if strings.HasPrefix(key, userID+"\x00") {
			delete(m.sightings, key)
		}
	}
}

func (m *Module) trackBurst(userID string, now time.Time) bool {
	m.mu.Lock()
	window := m.windows[userID]
	if window == nil {
		window = utils.NewSlidingWindow(time.Duration(m.config.SpamWindowSeconds) * time.Second)
		m.windows[userID] = window
	}
	m.mu.Unlock()
	return window.Add(now) >= m.config.SpamMessages
}

// trackCrossChannel flags a user posting the same content in several distinct
// channels inside the window, and returns every copy so the caller can clean
// all of them up, current message included.
func (m *Module) trackCrossChannel(msg Message, now time.Time) []Copy {
	content := strings.TrimSpace(msg.Content)
	if len(content) < m.config.MinMessageLength {
		return nil
	}
	key := msg.AuthorID + "\x00" + strings.ToLower(content)
	cutoff := now.Add(-time.Duration(m.config.CrossWindowSeconds) * time.Second)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.sightings[key][:0]
	for _, s := range m.sightings[key] {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	kept = append(kept, sighting{channelID: msg.ChannelID, messageID: msg.MessageID, at: now})
	m.sightings[key] = kept

	channels := make(map[string]struct{}, len(kept))
	for _, s := range kept {
		channels[s.channelID] = struct{}{}
	}
	if len(channels) < m.config.CrossChannels {
		return nil
	}

	copies := make([]Copy, len(kept))
	for i, s := range kept {
		copies[i] = Copy{ChannelID: s.channelID, MessageID: s.messageID}
	}
	delete(m.sightings, key)
	return copies
}
