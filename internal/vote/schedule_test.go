package vote

import (
	"testing"
	"time"
)

func parisTime(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, parisLocation)
}

func TestNextWipeDateFirstThursday(t *testing.T) {
	now := parisTime(2025, time.June, 1, 12)
	got := NextWipeDate(now)
	want := parisTime(2025, time.June, 5, 20)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextWipeDateThirdThursday(t *testing.T) {
	now := parisTime(2025, time.June, 6, 9)
	got := NextWipeDate(now)
	want := parisTime(2025, time.June, 19, 18)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextWipeDateRollsToNextMonth(t *testing.T) {
	now := parisTime(2025, time.June, 20, 0)
	got := NextWipeDate(now)
	want := parisTime(2025, time.July, 3, 20)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextWipeDateRollsAcrossYear(t *testing.T) {
	now := parisTime(2025, time.December, 19, 0)
	got := NextWipeDate(now)
	want := parisTime(2026, time.January, 1, 20)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextWipeDateIsStrictlyAfterNow(t *testing.T) {
	wipe := parisTime(2025, time.June, 5, 20)
	got := NextWipeDate(wipe)
	want := parisTime(2025, time.June, 19, 18)
	if !got.Equal(want) {
		t.Fatalf("a wipe instant must resolve to the following wipe, got %v", got)
	}
}

func TestNextWipeDateMonotonic(t *testing.T) {
	now := parisTime(2025, time.January, 1, 0)
	prev := NextWipeDate(now)
	for i := 0; i < 48; i++ {
		next := NextWipeDate(prev.Add(time.Minute))
		if !next.After(prev) {
			t.Fatalf("wipe sequence must advance: %v then %v", prev, next)
		}
		prev = next
	}
}

func TestVoteWindowOffsets(t *testing.T) {
	wipe := parisTime(2025, time.June, 5, 20)
	start := VoteStartTime(wipe, 48)
	end := VoteEndTime(wipe, 2)
	if !start.Equal(wipe.Add(-48 * time.Hour)) {
		t.Fatalf("unexpected start %v", start)
	}
	if !end.Equal(wipe.Add(-2 * time.Hour)) {
		t.Fatalf("unexpected end %v", end)
	}
	if !start.Before(end) {
		t.Fatalf("vote window must open before it closes")
	}
}
