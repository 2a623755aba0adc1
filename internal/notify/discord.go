package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts events as embeds to a Discord channel. Only the REST
// API is used; no gateway connection is opened.
type DiscordNotifier struct {
	sess      discordSession
	channelID string
}

// NewDiscord returns a DiscordNotifier authenticated with a bot token.
func NewDiscord(botToken, channelID string) (*DiscordNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("discord: channel id is required")
	}
	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &DiscordNotifier{sess: dg, channelID: channelID}, nil
}

func (d *DiscordNotifier) Notify(ctx context.Context, evt Event) error {
	if _, err := d.sess.ChannelMessageSendEmbed(d.channelID, eventToEmbed(evt), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// eventToEmbed converts an Event to a Discord Embed.
func eventToEmbed(evt Event) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       evt.Title,
		Description: evt.Body,
		Color:       parseHexColor(evt.Color()),
	}
	for _, f := range evt.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return embed
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
func parseHexColor(hex string) int {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	var color int
	for _, c := range hex {
		color <<= 4
		switch {
		case c >= '0' && c <= '9':
			color |= int(c - '0')
		case c >= 'a' && c <= 'f':
			color |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			color |= int(c-'A') + 10
		}
	}
	return color
}
