package vote

import (
	"errors"

	"winr8te-bot/internal/gateway"

	"go.uber.org/zap"
)

// ReactionEvent is the platform-agnostic shape of a reaction add or remove.
type ReactionEvent struct {
	UserID    string
	Bot       bool
	MessageID string
	ChannelID string
	Emoji     string
}

// Router correlates raw reaction events with open votes. It never mutates
// tallies; counting happens once at close from live reaction state. Its only
// side effect is enforcing the single-choice policy.
type Router struct {
	registry     *Registry
	gw           gateway.Gateway
	logger       *zap.Logger
	clock        Clock
	singleChoice bool
}

func NewRouter(registry *Registry, gw gateway.Gateway, singleChoice bool, logger *zap.Logger) *Router {
	return &Router{
		registry:     registry,
		gw:           gw,
		logger:       logger,
		clock:        realClock{},
		singleChoice: singleChoice,
	}
}

func (r *Router) WithClock(clock Clock) {
	r.clock = clock
}

// OnReactionAdd handles one reaction added to any message. Events that do not
// concern an open ballot are dropped without I/O.
func (r *Router) OnReactionAdd(ev ReactionEvent) {
	if ev.Bot || ev.UserID == r.gw.BotUserID() {
		return
	}
	choice := EmojiIndex(ev.Emoji)
	if choice < 0 {
		return
	}
	v, ok := r.registry.FindByMessageID(ev.MessageID)
	if !ok {
		return
	}
	if choice >= len(v.Candidates) {
		// A four-slot emoji on a three-candidate ballot.
		if err := r.gw.RemoveReaction(ev.ChannelID, ev.MessageID, ev.Emoji, ev.UserID); err != nil {
			r.logger.Warn("stray reaction removal failed",
				zap.String("vote_id", v.ID),
				zap.String("user_id", ev.UserID),
				zap.Error(err))
		}
		return
	}
	if !r.clock.Now().Before(v.EndTime) {
		return
	}

	r.logger.Debug("ballot reaction",
		zap.String("vote_id", v.ID),
		zap.String("user_id", ev.UserID),
		zap.Int("choice", choice))

	if r.singleChoice {
		r.enforceSingleChoice(v, ev.UserID, choice)
	}
}

// OnReactionRemove exists for symmetry with adds. Removals need no action:
// the close-time recount observes whatever reaction state is left.
func (r *Router) OnReactionRemove(ev ReactionEvent) {
	if ev.Bot {
		return
	}
	if EmojiIndex(ev.Emoji) < 0 {
		return
	}
	v, ok := r.registry.FindByMessageID(ev.MessageID)
	if !ok {
		return
	}
	r.logger.Debug("ballot reaction withdrawn",
		zap.String("vote_id", v.ID),
		zap.String("user_id", ev.UserID))
}

// enforceSingleChoice strips the user's reactions on every other candidate so
// their latest pick is their only pick. Removal failures are logged and
// skipped; the recount counts distinct users per emoji either way.
func (r *Router) enforceSingleChoice(v Vote, userID string, keep int) {
	for i := 0; i < len(v.Candidates); i++ {
		if i == keep {
			continue
		}
		err := r.gw.RemoveReaction(v.ChannelID, v.VoteMessageID, voteEmojis[i], userID)
		if err != nil && !errors.Is(err, gateway.ErrNotFound) {
			r.logger.Warn("single-choice cleanup failed",
				zap.String("vote_id", v.ID),
				zap.String("user_id", userID),
				zap.Int("candidate", i),
				zap.Error(err))
		}
	}
}
