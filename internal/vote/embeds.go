package vote

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

func (c *Controller) buildAnnounceEmbed(v Vote) *discordgo.MessageEmbed {
	title := "🗳️ Vote de la map du prochain wipe"
	if v.Forced {
		title = "🗳️ Vote de map exceptionnel"
	}
	return &discordgo.MessageEmbed{
		Title: title,
		Description: fmt.Sprintf(
			"Choisissez la map du wipe du **%s** en réagissant au message de vote ci-dessous.\nLe vote se termine <t:%d:R>.",
			v.WipeDate.Format("02/01/2006"), v.EndTime.Unix()),
		Color:     colorBlue,
		Timestamp: c.clock.Now().Format(time.RFC3339),
	}
}

// buildCandidatesMessage shows one embed per candidate so each map image
// renders full width, with a link button row to open the maps on the
// generation site.
func (c *Controller) buildCandidatesMessage(v Vote) *discordgo.MessageSend {
	embeds := make([]*discordgo.MessageEmbed, len(v.Candidates))
	buttons := make([]discordgo.MessageComponent, 0, len(v.Candidates))
	for i, candidate := range v.Candidates {
		embeds[i] = &discordgo.MessageEmbed{
			Title: fmt.Sprintf("%s Map %d", voteEmojis[i], i+1),
			Description: fmt.Sprintf("Seed `%s` · Taille `%d`",
				candidate.Seed, c.mapSize),
			Color: colorBlue,
			Image: &discordgo.MessageEmbedImage{URL: candidate.ImageURL},
		}
		if candidate.MapLink != "" {
			buttons = append(buttons, discordgo.Button{
				Label: fmt.Sprintf("Map %d", i+1),
				Style: discordgo.LinkButton,
				URL:   candidate.MapLink,
			})
		}
	}
	msg := &discordgo.MessageSend{Embeds: embeds}
	if len(buttons) > 0 {
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		}
	}
	return msg
}

func (c *Controller) buildBallotEmbed(v Vote) *discordgo.MessageEmbed {
	var sb strings.Builder
	for i, candidate := range v.Candidates {
		fmt.Fprintf(&sb, "%s Map %d · seed `%s`\n", voteEmojis[i], i+1, candidate.Seed)
	}
	return &discordgo.MessageEmbed{
		Title:       "Votez ici",
		Description: sb.String(),
		Color:       colorBlue,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Réagissez avec le numéro de la map de votre choix.",
		},
		Timestamp: c.clock.Now().Format(time.RFC3339),
	}
}

func (c *Controller) buildResultEmbed(v Vote, tally Tally, winner int) *discordgo.MessageEmbed {
	var sb strings.Builder
	for i, candidate := range v.Candidates {
		marker := ""
		if i == winner {
			marker = " 🏆"
		}
		fmt.Fprintf(&sb, "%s Map %d (`%s`) : **%d** vote(s)%s\n",
			voteEmojis[i], i+1, candidate.Seed, tally.PerCandidate[i], marker)
	}
	fmt.Fprintf(&sb, "\nTotal : **%d** vote(s)", tally.Total)

	embed := &discordgo.MessageEmbed{
		Title: "🏆 Résultat du vote",
		URL:   v.Candidates[winner].MapLink,
		Description: fmt.Sprintf("La map **%d** (seed `%s`) a gagné !\n\n%s",
			winner+1, v.Candidates[winner].Seed, sb.String()),
		Color:     colorGreen,
		Timestamp: c.clock.Now().Format(time.RFC3339),
	}
	if img := v.Candidates[winner].ImageURL; img != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: img}
	}
	return embed
}
