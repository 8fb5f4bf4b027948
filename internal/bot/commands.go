package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"winr8te-bot/internal/vote"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) registerCommands() error {
	mapvoteOptions := make([]*discordgo.ApplicationCommandOption, 0, 12)
	for i := 1; i <= 4; i++ {
		required := i <= 3
		mapvoteOptions = append(mapvoteOptions,
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        fmt.Sprintf("image%d", i),
				Description: fmt.Sprintf("Image URL for map %d", i),
				Required:    required,
			},
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        fmt.Sprintf("link%d", i),
				Description: fmt.Sprintf("RustMaps link for map %d", i),
				Required:    required,
			},
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        fmt.Sprintf("seed%d", i),
				Description: fmt.Sprintf("Seed for map %d", i),
				Required:    required,
			},
		)
	}

	adminOnly := int64(discordgo.PermissionAdministrator)
	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "mapvote",
			Description:              "Launch a map vote with hand-picked maps",
			DefaultMemberPermissions: &adminOnly,
			Options:                  mapvoteOptions,
		},
		{
			Name:                     "forcemapvote",
			Description:              "Launch an auto-generated map vote outside the calendar",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "immediate",
					Description: "Close after the given duration instead of before the wipe",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "duration",
					Description: "Vote duration in minutes (immediate mode)",
				},
			},
		},
		{
			Name:        "seed",
			Description: "Show the currently active map seed",
		},
		{
			Name:                     "antispam",
			Description:              "Anti-spam administration",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "status or unban",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "status", Value: "status"},
						{Name: "unban", Value: "unban"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to unban",
				},
			},
		},
	}

	for _, command := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", command); err != nil {
			return fmt.Errorf("register command %s: %w", command.Name, err)
		}
	}
	b.logger.Info("slash commands registered", zap.Int("count", len(commands)))
	return nil
}

// handleMapVoteCommand launches a vote from operator-provided maps. The vote
// runs against the next wipe on the calendar and ends two hours before it.
func (b *Bot) handleMapVoteCommand(interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	candidates := make([]vote.Candidate, 0, 4)
	for i := 1; i <= 4; i++ {
		seed := optionString(options, fmt.Sprintf("seed%d", i))
		image := optionString(options, fmt.Sprintf("image%d", i))
		link := optionString(options, fmt.Sprintf("link%d", i))
		if seed == "" {
			break
		}
		candidates = append(candidates, vote.Candidate{Seed: seed, ImageURL: image, MapLink: link})
	}
	if len(candidates) < 3 {
		b.respond(interaction, "Il faut au moins 3 maps (seed, image et lien pour chacune).", true)
		return
	}

	wipe := vote.NextWipeDate(time.Now())
	endTime := vote.VoteEndTime(wipe, b.cfg.Vote.EndOffsetHours)

	voteID, err := b.votes.Create(context.Background(), vote.CreateParams{
		Candidates: candidates,
		EndTime:    endTime,
		WipeDate:   wipe,
		ChannelID:  b.voteChannel(interaction),
		Forced:     true,
		VoteID:     interaction.ID,
	})
	if err != nil {
		b.logger.Error("manual vote launch failed", zap.Error(err))
		b.respond(interaction, "Le vote n'a pas pu être lancé : "+err.Error(), true)
		return
	}

	b.respond(interaction, fmt.Sprintf("Vote lancé (%d maps), fin <t:%d:R>.", len(candidates), endTime.Unix()), true)
	b.logger.Info("manual vote launched",
		zap.String("vote_id", voteID),
		zap.String("user_id", interactionUserID(interaction)))
}

// handleForceMapVoteCommand launches an auto-generated vote. Map generation
// can take minutes, so the response is deferred and the outcome arrives as a
// follow-up.
func (b *Bot) handleForceMapVoteCommand(interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if err := b.deferResponse(interaction, true); err != nil {
		b.logger.Warn("interaction defer failed", zap.Error(err))
		return
	}

	immediate := optionBool(options, "immediate")
	duration, hasDuration := optionInt(options, "duration")
	channelID := b.voteChannel(interaction)
	wipe := vote.NextWipeDate(time.Now())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()

		var voteID string
		var err error
		if immediate {
			minutes := 120
			if hasDuration {
				minutes = int(duration)
			}
			voteID, err = b.votes.ForceImmediate(ctx, channelID, minutes, wipe)
		} else {
			voteID, err = b.votes.Create(ctx, vote.CreateParams{
				CandidateCount: b.cfg.Vote.CandidateCount,
				EndTime:        vote.VoteEndTime(wipe, b.cfg.Vote.EndOffsetHours),
				WipeDate:       wipe,
				ChannelID:      channelID,
				Forced:         true,
				VoteID:         interaction.ID,
			})
		}
		if err != nil {
			b.logger.Error("forced vote launch failed", zap.Error(err))
			b.followUp(interaction, "Le vote n'a pas pu être lancé : "+err.Error())
			return
		}
		b.followUp(interaction, "Vote lancé.")
		b.logger.Info("forced vote launched",
			zap.String("vote_id", voteID),
			zap.String("user_id", interactionUserID(interaction)))
	}()
}

func (b *Bot) handleSeedCommand(interaction *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seed, err := b.store.GetActiveSeed(ctx)
	if err != nil {
		b.logger.Error("active seed lookup failed", zap.Error(err))
		b.respond(interaction, "Impossible de lire la seed active.", true)
		return
	}
	if seed.Seed == "" {
		b.respond(interaction, "Aucune seed active pour le moment.", true)
		return
	}
	b.respondEmbed(interaction, commandEmbed("🌍 Map actuelle",
		fmt.Sprintf("Seed `%s` · Taille `%d`\nWipe du %s",
			seed.Seed, seed.MapSize, seed.NextWipeDate.Format("02/01/2006")),
		colorGreen), false)
}

func (b *Bot) handleAntispamCommand(interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch optionString(options, "action") {
	case "status":
		count, err := b.store.CountBannedUsers(ctx)
		if err != nil {
			b.logger.Error("banned user count failed", zap.Error(err))
			b.respond(interaction, "Impossible de lire l'état de l'anti-spam.", true)
			return
		}
		state := "désactivé"
		if b.cfg.Antispam.Enabled {
			state = "actif"
		}
		b.respondEmbed(interaction, commandEmbed("🛡️ Anti-spam",
			fmt.Sprintf("État : **%s**\nUtilisateurs restreints : **%s**", state, strconv.Itoa(count)),
			colorGreen), true)

	case "unban":
		userID := optionUserID(interaction, options, "user")
		if userID == "" {
			b.respond(interaction, "Précisez l'utilisateur à débloquer.", true)
			return
		}
		removed, err := b.store.RemoveBannedUser(ctx, userID)
		if err != nil {
			b.logger.Error("unban failed", zap.String("user_id", userID), zap.Error(err))
			b.respond(interaction, "Le déblocage a échoué.", true)
			return
		}
		if !removed {
			b.respond(interaction, "Cet utilisateur n'est pas restreint.", true)
			return
		}
		if interaction.GuildID != "" {
			if roleID, err := b.findRoleByName(interaction.GuildID, b.cfg.Antispam.BanRoleName); err == nil {
				if err := b.session.GuildMemberRoleRemove(interaction.GuildID, userID, roleID); err != nil {
					b.logger.Warn("ban role removal failed", zap.String("user_id", userID), zap.Error(err))
				}
			}
		}
		b.antispam.Forget(userID)
		b.respond(interaction, fmt.Sprintf("<@%s> a été débloqué.", userID), true)

	default:
		b.respond(interaction, "Action inconnue.", true)
	}
}

// voteChannel picks the configured vote channel, falling back to wherever the
// command was issued.
func (b *Bot) voteChannel(interaction *discordgo.InteractionCreate) string {
	if b.cfg.Vote.ChannelID != "" {
		return b.cfg.Vote.ChannelID
	}
	return interaction.ChannelID
}

func interactionUserID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

func optionUserID(interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionUser {
			if user := opt.UserValue(nil); user != nil {
				return user.ID
			}
		}
	}
	return ""
}
