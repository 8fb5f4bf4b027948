package vote

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestEmojiIndexMatchesBothKeycapForms(t *testing.T) {
	if got := EmojiIndex("1️⃣"); got != 0 {
		t.Fatalf("full keycap form: got %d", got)
	}
	if got := EmojiIndex("1⃣"); got != 0 {
		t.Fatalf("bare keycap form: got %d", got)
	}
	if got := EmojiIndex("4️⃣"); got != 3 {
		t.Fatalf("fourth keycap: got %d", got)
	}
	if got := EmojiIndex("👍"); got != -1 {
		t.Fatalf("non-ballot emoji must map to -1, got %d", got)
	}
}

func openBallot(r *Registry, clock Clock, candidates int) Vote {
	v := Vote{
		ID:            "v1",
		Candidates:    threeCandidates()[:candidates],
		EndTime:       clock.Now().Add(time.Hour),
		ChannelID:     "chan",
		VoteMessageID: "ballot",
	}
	r.Put(v)
	return v
}

func TestRouterSingleChoiceStripsOtherReactions(t *testing.T) {
	gw := newFakeGateway()
	registry := NewRegistry()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	router := NewRouter(registry, gw, true, zap.NewNop())
	router.WithClock(clock)
	openBallot(registry, clock, 3)

	router.OnReactionAdd(ReactionEvent{
		UserID:    "alice",
		MessageID: "ballot",
		ChannelID: "chan",
		Emoji:     voteEmojis[1],
	})

	if len(gw.removed) != 2 {
		t.Fatalf("expected the two other ballot reactions stripped, got %v", gw.removed)
	}
	for _, removal := range gw.removed {
		if removal == voteEmojis[1]+":alice" {
			t.Fatalf("the chosen reaction must stay")
		}
	}
}

func TestRouterMultiChoiceLeavesReactionsAlone(t *testing.T) {
	gw := newFakeGateway()
	registry := NewRegistry()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	router := NewRouter(registry, gw, false, zap.NewNop())
	router.WithClock(clock)
	openBallot(registry, clock, 3)

	router.OnReactionAdd(ReactionEvent{
		UserID:    "alice",
		MessageID: "ballot",
		ChannelID: "chan",
		Emoji:     voteEmojis[0],
	})

	if len(gw.removed) != 0 {
		t.Fatalf("multi-choice mode must not strip reactions, got %v", gw.removed)
	}
}

func TestRouterIgnoresBotsAndSelf(t *testing.T) {
	gw := newFakeGateway()
	registry := NewRegistry()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	router := NewRouter(registry, gw, true, zap.NewNop())
	router.WithClock(clock)
	openBallot(registry, clock, 3)

	router.OnReactionAdd(ReactionEvent{
		UserID: "spam-bot", Bot: true,
		MessageID: "ballot", ChannelID: "chan", Emoji: voteEmojis[0],
	})
	router.OnReactionAdd(ReactionEvent{
		UserID:    gw.BotUserID(),
		MessageID: "ballot", ChannelID: "chan", Emoji: voteEmojis[0],
	})

	if len(gw.removed) != 0 {
		t.Fatalf("bot reactions must be ignored, got %v", gw.removed)
	}
}

func TestRouterIgnoresUnknownMessagesAndEmojis(t *testing.T) {
	gw := newFakeGateway()
	registry := NewRegistry()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	router := NewRouter(registry, gw, true, zap.NewNop())
	router.WithClock(clock)
	openBallot(registry, clock, 3)

	router.OnReactionAdd(ReactionEvent{
		UserID: "alice", MessageID: "other", ChannelID: "chan", Emoji: voteEmojis[0],
	})
	router.OnReactionAdd(ReactionEvent{
		UserID: "alice", MessageID: "ballot", ChannelID: "chan", Emoji: "👍",
	})

	if len(gw.removed) != 0 {
		t.Fatalf("irrelevant reactions must be ignored, got %v", gw.removed)
	}
}

func TestRouterRemovesStrayFourthSlotReaction(t *testing.T) {
	gw := newFakeGateway()
	registry := NewRegistry()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	router := NewRouter(registry, gw, true, zap.NewNop())
	router.WithClock(clock)
	openBallot(registry, clock, 3)

	router.OnReactionAdd(ReactionEvent{
		UserID: "alice", MessageID: "ballot", ChannelID: "chan", Emoji: voteEmojis[3],
	})

	if len(gw.removed) != 1 || gw.removed[0] != voteEmojis[3]+":alice" {
		t.Fatalf("expected the stray reaction removed, got %v", gw.removed)
	}
}

func TestRouterIgnoresReactionsAfterDeadline(t *testing.T) {
	gw := newFakeGateway()
	registry := NewRegistry()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	router := NewRouter(registry, gw, true, zap.NewNop())
	router.WithClock(clock)
	openBallot(registry, clock, 3)

	clock.Advance(2 * time.Hour)
	router.OnReactionAdd(ReactionEvent{
		UserID: "alice", MessageID: "ballot", ChannelID: "chan", Emoji: voteEmojis[0],
	})

	if len(gw.removed) != 0 {
		t.Fatalf("reactions after the deadline must be inert, got %v", gw.removed)
	}
}
