package antispam

import (
	"fmt"
	"testing"
	"time"

	"winr8te-bot/internal/config"
	"winr8te-bot/internal/modules/audit"
	"winr8te-bot/internal/storage"

	"go.uber.org/zap"
)

func testModule(t *testing.T) (*Module, *fakeTime) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	module := New(config.AntispamConfig{
		SpamMessages:       3,
		SpamWindowSeconds:  10,
		CrossChannels:      3,
		CrossWindowSeconds: 10,
		MinMessageLength:   5,
	}, audit.NewLogger(store, zap.NewNop()))

	clock := &fakeTime{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	module.WithClock(clock.Now)
	return module, clock
}

type fakeTime struct{ now time.Time }

func (f *fakeTime) Now() time.Time          { return f.now }
func (f *fakeTime) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestBurstDetection(t *testing.T) {
	module, _ := testModule(t)

	for i := 0; i < 2; i++ {
		verdict := module.CheckMessage(Message{
			AuthorID: "u1", ChannelID: "c1", MessageID: fmt.Sprintf("m%d", i),
			Content: fmt.Sprintf("hello %d", i),
		})
		if verdict.Flagged {
			t.Fatalf("message %d should not flag", i)
		}
	}

	verdict := module.CheckMessage(Message{
		AuthorID: "u1", ChannelID: "c1", MessageID: "m3", Content: "hello 3",
	})
	if !verdict.Flagged || verdict.Reason != ReasonBurst {
		t.Fatalf("third message in window must flag as burst, got %+v", verdict)
	}
}

func TestBurstWindowExpires(t *testing.T) {
	module, clock := testModule(t)

	for i := 0; i < 2; i++ {
		module.CheckMessage(Message{AuthorID: "u1", ChannelID: "c1", MessageID: fmt.Sprintf("m%d", i), Content: "different"})
	}
	clock.Advance(11 * time.Second)

	verdict := module.CheckMessage(Message{AuthorID: "u1", ChannelID: "c1", MessageID: "m3", Content: "later on"})
	if verdict.Flagged {
		t.Fatalf("messages outside the window must not count, got %+v", verdict)
	}
}

func TestCrossChannelDetection(t *testing.T) {
	module, _ := testModule(t)

	content := "buy cheap scrap here"
	for i, channel := range []string{"c1", "c2"} {
		verdict := module.CheckMessage(Message{
			AuthorID: "u1", ChannelID: channel, MessageID: fmt.Sprintf("m%d", i), Content: content,
		})
		if verdict.Flagged {
			t.Fatalf("copy %d should not flag yet", i)
		}
	}

	verdict := module.CheckMessage(Message{
		AuthorID: "u1", ChannelID: "c3", MessageID: "m3", Content: content,
	})
	if !verdict.Flagged || verdict.Reason != ReasonCrossChannel {
		t.Fatalf("third channel must flag, got %+v", verdict)
	}
	if len(verdict.Copies) != 3 {
		t.Fatalf("all three copies must be reported for cleanup, got %v", verdict.Copies)
	}
}

func TestCrossChannelIgnoresShortMessages(t *testing.T) {
	module, _ := testModule(t)

	for i, channel := range []string{"c1", "c2", "c3", "c4"} {
		verdict := module.CheckMessage(Message{
			AuthorID: "u1", ChannelID: channel, MessageID: fmt.Sprintf("m%d", i), Content: "gg",
		})
		if verdict.Reason == ReasonCrossChannel {
			t.Fatalf("short content must not trigger cross-channel detection")
		}
	}
}

func TestCrossChannelSameChannelRepeatsDoNotFlag(t *testing.T) {
	module, _ := testModule(t)

	content := "anyone up for a raid tonight"
	var verdict Verdict
	for i := 0; i < 2; i++ {
		verdict = module.CheckMessage(Message{
			AuthorID: "u1", ChannelID: "c1", MessageID: fmt.Sprintf("m%d", i), Content: content,
		})
	}
	if verdict.Reason == ReasonCrossChannel {
		t.Fatalf("repeats in one channel are not cross-channel spam")
	}
}

func TestInviteDetectionRequiresMemberRole(t *testing.T) {
	module, _ := testModule(t)

	verdict := module.CheckMessage(Message{
		AuthorID: "u1", ChannelID: "c1", MessageID: "m1",
		Content: "join us discord.gg/abc123", HasMemberRole: false,
	})
	if verdict.Flagged {
		t.Fatalf("invite from roleless user is not flagged, got %+v", verdict)
	}

	verdict = module.CheckMessage(Message{
		AuthorID: "u2", ChannelID: "c1", MessageID: "m2",
		Content: "join us discord.gg/abc123", HasMemberRole: true,
	})
	if !verdict.Flagged || verdict.Reason != ReasonInvite {
		t.Fatalf("invite from member must flag, got %+v", verdict)
	}
}

func TestForgetClearsState(t *testing.T) {
	module, _ := testModule(t)

	for i := 0; i < 2; i++ {
		module.CheckMessage(Message{AuthorID: "u1", ChannelID: "c1", MessageID: fmt.Sprintf("m%d", i), Content: "spam content"})
	}
	module.Forget("u1")

	verdict := module.CheckMessage(Message{AuthorID: "u1", ChannelID: "c1", MessageID: "m9", Content: "spam content"})
	if verdict.Flagged {
		t.Fatalf("forgotten user must start from a clean slate, got %+v", verdict)
	}
}
