package gateway

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// ErrNotFound is returned when a channel or message no longer exists on the
// platform, so callers can tell "deleted" apart from transport failures.
var ErrNotFound = errors.New("gateway: not found")

// Gateway is the narrow surface of the chat platform the vote core depends
// on. Rate-limit backoff is the implementation's concern; calls may block
// longer than expected but are never duplicated by callers.
type Gateway interface {
	SendMessage(channelID, content string) (string, error)
	SendComplex(channelID string, data *discordgo.MessageSend) (string, error)
	FetchChannel(channelID string) (*discordgo.Channel, error)
	FetchMessage(channelID, messageID string) (*discordgo.Message, error)
	FetchReactors(channelID, messageID, emoji string) ([]*discordgo.User, error)
	AddReaction(channelID, messageID, emoji string) error
	RemoveReaction(channelID, messageID, emoji, userID string) error
	BotUserID() string
}

type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) SendMessage(channelID, content string) (string, error) {
	msg, err := d.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", mapError(err)
	}
	return msg.ID, nil
}

func (d *Discord) SendComplex(channelID string, data *discordgo.MessageSend) (string, error) {
	msg, err := d.session.ChannelMessageSendComplex(channelID, data)
	if err != nil {
		return "", mapError(err)
	}
	return msg.ID, nil
}

func (d *Discord) FetchChannel(channelID string) (*discordgo.Channel, error) {
	channel, err := d.session.State.Channel(channelID)
	if err == nil && channel != nil {
		return channel, nil
	}
	channel, err = d.session.Channel(channelID)
	if err != nil {
		return nil, mapError(err)
	}
	return channel, nil
}

func (d *Discord) FetchMessage(channelID, messageID string) (*discordgo.Message, error) {
	msg, err := d.session.ChannelMessage(channelID, messageID)
	if err != nil {
		return nil, mapError(err)
	}
	return msg, nil
}

func (d *Discord) FetchReactors(channelID, messageID, emoji string) ([]*discordgo.User, error) {
	var users []*discordgo.User
	after := ""
	for {
		page, err := d.session.MessageReactions(channelID, messageID, emoji, 100, "", after)
		if err != nil {
			return nil, mapError(err)
		}
		users = append(users, page...)
		if len(page) < 100 {
			return users, nil
		}
		after = page[len(page)-1].ID
	}
}

func (d *Discord) AddReaction(channelID, messageID, emoji string) error {
	return mapError(d.session.MessageReactionAdd(channelID, messageID, emoji))
}

func (d *Discord) RemoveReaction(channelID, messageID, emoji, userID string) error {
	return mapError(d.session.MessageReactionRemove(channelID, messageID, emoji, userID))
}

func (d *Discord) BotUserID() string {
	if d.session.State != nil && d.session.State.User != nil {
		return d.session.State.User.ID
	}
	return ""
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}
