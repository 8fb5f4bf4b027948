package bot

import (
	"context"
	"fmt"
	"strings"

	"winr8te-bot/internal/modules/antispam"
	"winr8te-bot/internal/modules/audit"
	"winr8te-bot/internal/vote"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" || !b.cfg.Antispam.Enabled {
		return
	}

	verdict := b.antispam.CheckMessage(antispam.Message{
		AuthorID:      msg.Author.ID,
		ChannelID:     msg.ChannelID,
		MessageID:     msg.ID,
		Content:       msg.Content,
		HasMemberRole: b.memberHasRole(msg.Member, msg.GuildID, b.cfg.Antispam.MemberRoleName),
	})
	if !verdict.Flagged {
		return
	}

	b.enforceSpamVerdict(msg, verdict)
}

// enforceSpamVerdict applies the consequences of a spam detection: delete the
// offending messages, assign the ban role, persist the ban, and tell the user
// where they ended up.
func (b *Bot) enforceSpamVerdict(msg *discordgo.MessageCreate, verdict antispam.Verdict) {
	ctx := context.Background()

	if len(verdict.Copies) > 0 {
		for _, dup := range verdict.Copies {
			if err := b.session.ChannelMessageDelete(dup.ChannelID, dup.MessageID); err != nil {
				b.logger.Warn("spam cleanup failed",
					zap.String("channel_id", dup.ChannelID),
					zap.String("message_id", dup.MessageID),
					zap.Error(err))
			}
		}
	} else {
		if err := b.session.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
			b.logger.Warn("spam message delete failed", zap.Error(err))
		}
	}

	roleID, err := b.findRoleByName(msg.GuildID, b.cfg.Antispam.BanRoleName)
	if err != nil {
		b.logger.Error("ban role lookup failed", zap.Error(err))
		return
	}
	if err := b.session.GuildMemberRoleAdd(msg.GuildID, msg.Author.ID, roleID); err != nil {
		b.logger.Error("ban role assignment failed",
			zap.String("user_id", msg.Author.ID),
			zap.Error(err))
		return
	}

	if err := b.store.AddBannedUser(ctx, msg.Author.ID, string(verdict.Reason)); err != nil {
		b.logger.Error("ban persistence failed", zap.String("user_id", msg.Author.ID), zap.Error(err))
	}
	b.antispam.Forget(msg.Author.ID)

	b.audit.Record(audit.LevelCrit, "spam_ban", msg.Author.ID,
		fmt.Sprintf("reason=%s", verdict.Reason))

	if logID, err := b.findChannelByName(msg.GuildID, b.cfg.Antispam.LogChannelName); err == nil {
		embed := commandEmbed("🔨 Spam détecté",
			fmt.Sprintf("<@%s> a été restreint (raison : `%s`).", msg.Author.ID, verdict.Reason),
			colorRed)
		if _, err := b.gw.SendComplex(logID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
			b.logger.Warn("spam log notification failed", zap.Error(err))
		}
	}
	if banID, err := b.findChannelByName(msg.GuildID, b.cfg.Antispam.BanChannelName); err == nil {
		content := fmt.Sprintf("<@%s> Vous avez été restreint pour spam. Contactez le staff si vous pensez qu'il s'agit d'une erreur.", msg.Author.ID)
		if _, err := b.gw.SendMessage(banID, content); err != nil {
			b.logger.Warn("ban channel notification failed", zap.Error(err))
		}
	}
}

// onGuildMemberAdd gives newcomers the game role, and reapplies the ban role
// to users who left and rejoined to shed it.
func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	ctx := context.Background()
	banned, err := b.store.IsBannedUser(ctx, event.User.ID)
	if err != nil {
		b.logger.Error("ban lookup failed", zap.String("user_id", event.User.ID), zap.Error(err))
		return
	}
	if !banned {
		if roleID, err := b.findRoleByName(event.GuildID, b.cfg.Antispam.MemberRoleName); err == nil {
			if err := session.GuildMemberRoleAdd(event.GuildID, event.User.ID, roleID); err != nil {
				b.logger.Warn("member role assignment failed",
					zap.String("user_id", event.User.ID),
					zap.Error(err))
			}
		}
		return
	}
	roleID, err := b.findRoleByName(event.GuildID, b.cfg.Antispam.BanRoleName)
	if err != nil {
		b.logger.Error("ban role lookup failed", zap.Error(err))
		return
	}
	if err := session.GuildMemberRoleAdd(event.GuildID, event.User.ID, roleID); err != nil {
		b.logger.Error("ban role reapplication failed",
			zap.String("user_id", event.User.ID),
			zap.Error(err))
		return
	}
	b.audit.Record(audit.LevelWarn, "ban_reapplied", event.User.ID, "banned user rejoined")
}

func (b *Bot) onMessageReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	b.router.OnReactionAdd(vote.ReactionEvent{
		UserID:    event.UserID,
		Bot:       event.Member != nil && event.Member.User != nil && event.Member.User.Bot,
		MessageID: event.MessageID,
		ChannelID: event.ChannelID,
		Emoji:     event.Emoji.Name,
	})
}

func (b *Bot) onMessageReactionRemove(session *discordgo.Session, event *discordgo.MessageReactionRemove) {
	b.router.OnReactionRemove(vote.ReactionEvent{
		UserID:    event.UserID,
		MessageID: event.MessageID,
		ChannelID: event.ChannelID,
		Emoji:     event.Emoji.Name,
	})
}

// memberHasRole reports whether the message author carries the named role.
// Role ids on the member are resolved against the guild role list.
func (b *Bot) memberHasRole(member *discordgo.Member, guildID, roleName string) bool {
	if member == nil || len(member.Roles) == 0 {
		return false
	}
	roleID, err := b.findRoleByName(guildID, roleName)
	if err != nil {
		return false
	}
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "mapvote":
		b.handleMapVoteCommand(interaction, data.Options)
	case "forcemapvote":
		b.handleForceMapVoteCommand(interaction, data.Options)
	case "seed":
		b.handleSeedCommand(interaction)
	case "antispam":
		b.handleAntispamCommand(interaction, data.Options)
	default:
		b.respond(interaction, "Commande inconnue.", true)
	}
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return strings.TrimSpace(opt.StringValue())
		}
	}
	return ""
}

func optionInt(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (int64, bool) {
	for _, opt := range options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionInteger {
			return opt.IntValue(), true
		}
	}
	return 0, false
}

func optionBool(options []*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	for _, opt := range options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionBoolean {
			return opt.BoolValue()
		}
	}
	return false
}
