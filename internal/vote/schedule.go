package vote

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// The wipe calendar: first Thursday of the month at 20:00 and third Thursday
// at 18:00, server local time (Europe/Paris). Votes open 48h before a wipe
// and close 2h before it by default.

var parisLocation = mustLoadLocation("Europe/Paris")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// NextWipeDate returns the first wipe strictly after now.
func NextWipeDate(now time.Time) time.Time {
	now = now.In(parisLocation)
	year, month := now.Year(), now.Month()
	for i := 0; i < 3; i++ {
		first := nthThursday(year, month, 1, 20)
		if first.After(now) {
			return first
		}
		third := nthThursday(year, month, 3, 18)
		if third.After(now) {
			return third
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	// Unreachable: every month has both wipes.
	return nthThursday(year, month, 1, 20)
}

func nthThursday(year int, month time.Month, n, hour int) time.Time {
	d := time.Date(year, month, 1, hour, 0, 0, 0, parisLocation)
	offset := (int(time.Thursday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

func VoteStartTime(wipe time.Time, offsetHours int) time.Time {
	return wipe.Add(-time.Duration(offsetHours) * time.Hour)
}

func VoteEndTime(wipe time.Time, offsetHours int) time.Time {
	return wipe.Add(-time.Duration(offsetHours) * time.Hour)
}

// Driver launches a vote ahead of each wipe on the calendar. It owns no vote
// state; it only decides when to call Create.
type Driver struct {
	controller     *Controller
	logger         *zap.Logger
	clock          Clock
	channelID      string
	candidateCount int
	startOffset    int
	endOffset      int
}

func NewDriver(controller *Controller, channelID string, candidateCount, startOffsetHours, endOffsetHours int, logger *zap.Logger) *Driver {
	return &Driver{
		controller:     controller,
		logger:         logger,
		clock:          realClock{},
		channelID:      channelID,
		candidateCount: candidateCount,
		startOffset:    startOffsetHours,
		endOffset:      endOffsetHours,
	}
}

func (d *Driver) WithClock(clock Clock) {
	d.clock = clock
}

// Run drives the calendar until the context is cancelled. Each iteration
// targets one wipe: sleep until its vote window opens, launch, then advance
// past that wipe. A launch failure skips the wipe rather than stalling the
// loop.
func (d *Driver) Run(ctx context.Context) {
	wipe := NextWipeDate(d.clock.Now())
	for {
		start := VoteStartTime(wipe, d.startOffset)
		now := d.clock.Now()

		if start.After(now) {
			d.logger.Info("next auto vote scheduled",
				zap.Time("wipe_date", wipe),
				zap.Time("vote_start", start))
			select {
			case <-ctx.Done():
				return
			case <-time.After(start.Sub(now)):
			}
		} else {
			d.logger.Warn("vote window already open, launching now",
				zap.Time("wipe_date", wipe),
				zap.Time("vote_start", start))
		}

		if ctx.Err() != nil {
			return
		}

		if _, err := d.controller.Create(ctx, CreateParams{
			CandidateCount: d.candidateCount,
			EndTime:        VoteEndTime(wipe, d.endOffset),
			WipeDate:       wipe,
			ChannelID:      d.channelID,
		}); err != nil {
			d.logger.Error("auto vote launch failed",
				zap.Time("wipe_date", wipe),
				zap.Error(err))
		}

		// Advance strictly past the current wipe so a launch inside an
		// already-open window cannot re-target the same wipe forever.
		wipe = NextWipeDate(wipe.Add(time.Minute))
	}
}
