package vote

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidSchedule means the requested end time is not in the future.
	ErrInvalidSchedule = errors.New("vote: end time must be in the future")
	// ErrTallyUnavailable means the ballot message's reaction state could not
	// be read back from the platform.
	ErrTallyUnavailable = errors.New("vote: tally unavailable")
)

// voteEmojis are the ballot reactions in candidate order. The index of the
// emoji is the index of the candidate it elects.
var voteEmojis = [4]string{"1️⃣", "2️⃣", "3️⃣", "4️⃣"}

const variationSelector = "\ufe0f"

// EmojiIndex maps a reaction emoji to a candidate index, or -1 when the
// emoji is not a ballot option. The platform reports keycap emoji with or
// without the variation selector depending on the client, so both forms
// match.
func EmojiIndex(emoji string) int {
	normalized := strings.ReplaceAll(emoji, variationSelector, "")
	for i, e := range voteEmojis {
		if strings.ReplaceAll(e, variationSelector, "") == normalized {
			return i
		}
	}
	return -1
}

type Candidate struct {
	Seed     string
	ImageURL string
	MapLink  string
}

// Vote is one open map vote. Candidates and timing are fixed at creation;
// the only mutation after registration is attaching the ballot message id
// once the ballot has actually been sent.
type Vote struct {
	ID            string
	Candidates    []Candidate
	EndTime       time.Time
	WipeDate      time.Time
	ChannelID     string
	VoteMessageID string
	Forced        bool
}

// Tally is the per-candidate count of distinct non-bot reactors at a point
// in time, recomputed fresh from live reaction state.
type Tally struct {
	PerCandidate [4]int
	Total        int
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
