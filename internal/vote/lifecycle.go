package vote

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"winr8te-bot/internal/gateway"
	"winr8te-bot/internal/mapgen"
	"winr8te-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorBlue  = 0x3498db
	colorGreen = 0x2ecc71
	colorRed   = 0xe74c3c

	// minCloseDelay guards against arming a close timer in the past when a
	// forced vote asks for an immediate end.
	minCloseDelay = time.Second
)

// MapSource produces the map assets behind auto-generated candidates.
type MapSource interface {
	RequestGeneration(ctx context.Context, seed int64, size int) error
	WaitForMaps(ctx context.Context, seeds []int64, size int) ([]mapgen.MapInfo, error)
}

// OutcomeRecorder persists a concluded vote.
type OutcomeRecorder interface {
	RecordVoteOutcome(ctx context.Context, outcome storage.VoteOutcome) error
}

type CreateParams struct {
	// Candidates, when non-empty, are supplied by an operator and used as-is.
	// When empty, CandidateCount random seeds are generated and their maps
	// requested from the map source.
	Candidates     []Candidate
	CandidateCount int
	EndTime        time.Time
	WipeDate       time.Time
	ChannelID      string
	Forced         bool
	// VoteID overrides the synthesized auto id, typically with the
	// originating interaction id.
	VoteID string
}

// Controller drives a vote from creation through announcement, deadline,
// tallying, persistence and retirement.
type Controller struct {
	gw       gateway.Gateway
	maps     MapSource
	store    OutcomeRecorder
	registry *Registry
	logger   *zap.Logger
	clock    Clock
	mapSize  int

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewController(gw gateway.Gateway, maps MapSource, store OutcomeRecorder, registry *Registry, mapSize int, logger *zap.Logger) *Controller {
	return &Controller{
		gw:       gw,
		maps:     maps,
		store:    store,
		registry: registry,
		logger:   logger,
		clock:    realClock{},
		mapSize:  mapSize,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Controller) WithClock(clock Clock) {
	c.clock = clock
}

func (c *Controller) WithRand(rng *rand.Rand) {
	c.rng = rng
}

// Create builds a vote, announces it, and arms the close timer. Any failure
// before the vote is registered aborts the whole operation: no registry
// entry, no timer, no partial state.
func (c *Controller) Create(ctx context.Context, params CreateParams) (string, error) {
	count := len(params.Candidates)
	if count == 0 {
		count = params.CandidateCount
	}
	if count < 3 || count > 4 {
		return "", fmt.Errorf("vote: candidate count must be 3 or 4, got %d", count)
	}
	now := c.clock.Now()
	if !params.EndTime.After(now) {
		return "", ErrInvalidSchedule
	}

	candidates := params.Candidates
	if len(candidates) == 0 {
		generated, err := c.generateCandidates(ctx, count)
		if err != nil {
			return "", err
		}
		candidates = generated
	}

	voteID := params.VoteID
	if voteID == "" {
		voteID = fmt.Sprintf("auto_%d", now.UnixMilli())
	}

	v := Vote{
		ID:         voteID,
		Candidates: candidates,
		EndTime:    params.EndTime,
		WipeDate:   params.WipeDate,
		ChannelID:  params.ChannelID,
		Forced:     params.Forced,
	}
	c.registry.Put(v)

	if err := c.sendVoteMessages(v); err != nil {
		c.registry.Remove(voteID)
		return "", err
	}

	c.scheduleClose(voteID, params.EndTime)

	c.logger.Info("vote launched",
		zap.String("vote_id", voteID),
		zap.Time("end_time", params.EndTime),
		zap.Time("wipe_date", params.WipeDate),
		zap.Bool("forced", params.Forced))
	return voteID, nil
}

// ForceImmediate launches an auto-generated vote in the given channel that
// closes after durationMinutes instead of following the wipe calendar.
func (c *Controller) ForceImmediate(ctx context.Context, channelID string, durationMinutes int, wipeDate time.Time) (string, error) {
	if durationMinutes <= 0 {
		durationMinutes = 120
	}
	return c.Create(ctx, CreateParams{
		CandidateCount: 3,
		EndTime:        c.clock.Now().Add(time.Duration(durationMinutes) * time.Minute),
		WipeDate:       wipeDate,
		ChannelID:      channelID,
		Forced:         true,
	})
}

func (c *Controller) generateCandidates(ctx context.Context, count int) ([]Candidate, error) {
	seeds := make([]int64, count)
	for i := range seeds {
		seeds[i] = c.randomSeed()
	}

	for _, seed := range seeds {
		if err := c.maps.RequestGeneration(ctx, seed, c.mapSize); err != nil {
			return nil, err
		}
	}

	infos, err := c.maps.WaitForMaps(ctx, seeds, c.mapSize)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(infos))
	for i, info := range infos {
		candidates[i] = Candidate{
			Seed:     fmt.Sprintf("%d", info.Seed),
			ImageURL: info.ImageURL,
			MapLink:  info.URL,
		}
	}
	return candidates, nil
}

func (c *Controller) randomSeed() int64 {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.rng.Int63n(999999999)
}

// sendVoteMessages posts the announcement, the candidate embeds and the
// ballot message, in that order. The ballot must exist before reactions are
// seeded or correlated, so the message id is recorded before seeding.
func (c *Controller) sendVoteMessages(v Vote) error {
	announce := &discordgo.MessageSend{
		Content: "@everyone",
		Embeds:  []*discordgo.MessageEmbed{c.buildAnnounceEmbed(v)},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone},
		},
	}
	if _, err := c.gw.SendComplex(v.ChannelID, announce); err != nil {
		return fmt.Errorf("send announcement: %w", err)
	}

	if _, err := c.gw.SendComplex(v.ChannelID, c.buildCandidatesMessage(v)); err != nil {
		return fmt.Errorf("send candidates: %w", err)
	}

	ballotID, err := c.gw.SendComplex(v.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{c.buildBallotEmbed(v)},
	})
	if err != nil {
		return fmt.Errorf("send ballot: %w", err)
	}
	c.registry.SetMessageID(v.ID, ballotID)

	for i := 0; i < len(v.Candidates); i++ {
		if err := c.gw.AddReaction(v.ChannelID, ballotID, voteEmojis[i]); err != nil {
			return fmt.Errorf("seed reaction %s: %w", voteEmojis[i], err)
		}
	}
	return nil
}

// scheduleClose arms a one-shot timer that fires Close at the deadline. A
// vote that outlives the process loses its timer; Close tolerates the
// resulting stale fire by being a no-op on missing votes.
func (c *Controller) scheduleClose(voteID string, endTime time.Time) {
	delay := endTime.Sub(c.clock.Now())
	if delay < minCloseDelay {
		delay = minCloseDelay
	}
	time.AfterFunc(delay, func() {
		c.Close(voteID)
	})
	c.logger.Info("vote close scheduled", zap.String("vote_id", voteID), zap.Duration("delay", delay))
}

// Close resolves a vote: recount from live reaction state, pick the winner,
// persist, announce, retire. It never returns an error; every failure mode
// is handled locally and the vote is always purged from the registry.
func (c *Controller) Close(voteID string) {
	v, ok := c.registry.Get(voteID)
	if !ok {
		return
	}
	defer c.registry.Remove(voteID)

	ctx := context.Background()

	if _, err := c.gw.FetchChannel(v.ChannelID); err != nil {
		c.logger.Error("vote channel gone at close", zap.String("vote_id", voteID), zap.Error(err))
		return
	}

	if _, err := c.gw.FetchMessage(v.ChannelID, v.VoteMessageID); err != nil {
		c.logger.Warn("ballot message gone at close", zap.String("vote_id", voteID), zap.Error(err))
		c.sendNotice(v.ChannelID, "Vote annulé", "Le message de vote a été supprimé, aucun résultat ne peut être calculé.", colorRed)
		return
	}

	tally, err := c.ComputeTally(v.ChannelID, v.VoteMessageID, len(v.Candidates))
	if err != nil {
		c.logger.Error("tally failed at close", zap.String("vote_id", voteID), zap.Error(err))
		c.sendNotice(v.ChannelID, "Erreur de comptage", "Les votes n'ont pas pu être comptés.", colorRed)
		return
	}

	winner := c.pickWinner(tally, len(v.Candidates))

	outcome := storage.VoteOutcome{
		WinnerSeed: v.Candidates[winner].Seed,
		MapSize:    c.mapSize,
		WipeDate:   v.WipeDate,
		Seeds:      candidateSeeds(v.Candidates),
		Tallies:    tally.PerCandidate[:len(v.Candidates)],
		TotalVotes: tally.Total,
	}
	if err := c.store.RecordVoteOutcome(ctx, outcome); err != nil {
		// The members still get their result; the ledger write is advisory
		// relative to the announcement.
		c.logger.Error("outcome persistence failed", zap.String("vote_id", voteID), zap.Error(err))
	}

	if _, err := c.gw.SendComplex(v.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{c.buildResultEmbed(v, tally, winner)},
	}); err != nil {
		c.logger.Error("result announcement failed", zap.String("vote_id", voteID), zap.Error(err))
	}

	c.logger.Info("vote closed",
		zap.String("vote_id", voteID),
		zap.Int("winner_index", winner),
		zap.String("winner_seed", v.Candidates[winner].Seed),
		zap.Int("total_votes", tally.Total))
}

// ComputeTally fetches the live reactor list for each ballot emoji and
// counts distinct non-bot users. It is recomputed fresh every time: removals
// must count, and the bot's own seeding reaction must not.
func (c *Controller) ComputeTally(channelID, messageID string, candidateCount int) (Tally, error) {
	botID := c.gw.BotUserID()
	var tally Tally
	for i := 0; i < candidateCount; i++ {
		users, err := c.gw.FetchReactors(channelID, messageID, voteEmojis[i])
		if err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				// Nobody reacted with this emoji.
				continue
			}
			return Tally{}, fmt.Errorf("%w: %v", ErrTallyUnavailable, err)
		}
		seen := make(map[string]struct{}, len(users))
		for _, user := range users {
			if user == nil || user.Bot || user.ID == botID {
				continue
			}
			seen[user.ID] = struct{}{}
		}
		tally.PerCandidate[i] = len(seen)
		tally.Total += len(seen)
	}
	return tally, nil
}

// pickWinner returns the index of the highest tally; ties are broken
// uniformly at random among the tied candidates so repeated ties do not
// systematically favor the first map.
func (c *Controller) pickWinner(tally Tally, candidateCount int) int {
	max := tally.PerCandidate[0]
	for i := 1; i < candidateCount; i++ {
		if tally.PerCandidate[i] > max {
			max = tally.PerCandidate[i]
		}
	}
	tied := make([]int, 0, candidateCount)
	for i := 0; i < candidateCount; i++ {
		if tally.PerCandidate[i] == max {
			tied = append(tied, i)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return tied[c.rng.Intn(len(tied))]
}

func (c *Controller) sendNotice(channelID, title, description string, color int) {
	_, err := c.gw.SendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       title,
			Description: description,
			Color:       color,
			Timestamp:   c.clock.Now().Format(time.RFC3339),
		}},
	})
	if err != nil {
		c.logger.Error("notice send failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func candidateSeeds(candidates []Candidate) []string {
	seeds := make([]string, len(candidates))
	for i, candidate := range candidates {
		seeds[i] = candidate.Seed
	}
	return seeds
}
