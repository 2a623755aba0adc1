package notify

import (
	"fmt"
	"log/slog"

	"github.com/zulandar/scriptyard/internal/config"
)

// FromConfig builds the notifier for cfg: the log sink is always present,
// Slack and Discord are added when configured.
func FromConfig(cfg config.NotifyConfig, logger *slog.Logger) (Notifier, error) {
	m := Multi{LogNotifier{Logger: logger}}
	if cfg.Slack.Enabled() {
		s, err := NewSlack(cfg.Slack.BotToken, cfg.Slack.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		m = append(m, s)
	}
	if cfg.Discord.Enabled() {
		d, err := NewDiscord(cfg.Discord.BotToken, cfg.Discord.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		m = append(m, d)
	}
	return m, nil
}
