package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"winr8te-bot/internal/config"
	"winr8te-bot/internal/gateway"
	"winr8te-bot/internal/mapgen"
	"winr8te-bot/internal/modules/antispam"
	"winr8te-bot/internal/modules/audit"
	"winr8te-bot/internal/storage"
	"winr8te-bot/internal/vote"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorGreen = 0x2ecc71
	colorRed   = 0xe74c3c
)

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *storage.Store
	session  *discordgo.Session
	gw       gateway.Gateway
	audit    *audit.Logger
	antispam *antispam.Module
	votes    *vote.Controller
	router   *vote.Router
	guildID  string
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, maps *mapgen.Client) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	gw := gateway.NewDiscord(session)
	auditLogger := audit.NewLogger(store, logger)
	registry := vote.NewRegistry()
	controller := vote.NewController(gw, maps, store, registry, cfg.Vote.MapSize, logger)

	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		session:  session,
		gw:       gw,
		audit:    auditLogger,
		antispam: antispam.New(cfg.Antispam, auditLogger),
		votes:    controller,
		router:   vote.NewRouter(registry, gw, cfg.Vote.SingleChoice, logger),
	}

	if cfg.AuditLogChannel != "" {
		auditLogger.SetNotifier(func(message string) {
			if _, err := b.gw.SendMessage(cfg.AuditLogChannel, message); err != nil {
				logger.Warn("audit channel notification failed", zap.Error(err))
			}
		})
	}

	return b, nil
}

// Votes exposes the vote controller so the schedule driver can launch votes
// through the same instance the handlers use.
func (b *Bot) Votes() *vote.Controller {
	return b.votes
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onMessageReactionAdd)
	b.session.AddHandler(b.onMessageReactionRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)))
	if len(event.Guilds) > 0 {
		b.guildID = event.Guilds[0].ID
		b.audit.SetGuild(b.guildID)
	}
}

func (b *Bot) respond(interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	})
	if err != nil {
		b.logger.Warn("interaction response failed", zap.Error(err))
	}
}

func (b *Bot) respondEmbed(interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
	if err != nil {
		b.logger.Warn("interaction response failed", zap.Error(err))
	}
}

// deferResponse acknowledges a command immediately so long-running work such
// as map generation does not hit the interaction timeout.
func (b *Bot) deferResponse(interaction *discordgo.InteractionCreate, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

func (b *Bot) followUp(interaction *discordgo.InteractionCreate, content string) {
	_, err := b.session.FollowupMessageCreate(interaction.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
	if err != nil {
		b.logger.Warn("interaction follow-up failed", zap.Error(err))
	}
}

func commandEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// findRoleByName resolves a guild role id by display name, case-insensitive.
func (b *Bot) findRoleByName(guildID, name string) (string, error) {
	roles, err := b.session.GuildRoles(guildID)
	if err != nil {
		return "", err
	}
	for _, role := range roles {
		if strings.EqualFold(role.Name, name) {
			return role.ID, nil
		}
	}
	return "", fmt.Errorf("role %q not found", name)
}

func (b *Bot) findChannelByName(guildID, name string) (string, error) {
	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return "", err
	}
	for _, channel := range channels {
		if strings.EqualFold(channel.Name, name) {
			return channel.ID, nil
		}
	}
	return "", fmt.Errorf("channel %q not found", name)
}
