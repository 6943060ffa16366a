package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/config"
)

// NewSession builds a REST-only discordgo session. The gateway is never
// opened here; commands and events are handled elsewhere.
func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return s, nil
}

// DiscordProvisioner implements ChannelProvisioner over the Discord REST
// API.
type DiscordProvisioner struct {
	session *discordgo.Session
	logger  zerolog.Logger
}

func NewDiscordProvisioner(session *discordgo.Session, logger zerolog.Logger) *DiscordProvisioner {
	return &DiscordProvisioner{session: session, logger: logger}
}

func (p *DiscordProvisioner) CreateCategory(ctx context.Context, guildID, name string) (string, error) {
	ch, err := p.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return ch.ID, nil
}

func (p *DiscordProvisioner) CreateTextChannel(ctx context.Context, guildID, categoryID, name string) (string, error) {
	return p.createChannel(ctx, guildID, categoryID, name, discordgo.ChannelTypeGuildText)
}

func (p *DiscordProvisioner) CreateVoiceChannel(ctx context.Context, guildID, categoryID, name string) (string, error) {
	return p.createChannel(ctx, guildID, categoryID, name, discordgo.ChannelTypeGuildVoice)
}

func (p *DiscordProvisioner) createChannel(ctx context.Context, guildID, categoryID, name string, kind discordgo.ChannelType) (string, error) {
	ch, err := p.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     kind,
		ParentID: categoryID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create channel %q: %w", name, err)
	}
	return ch.ID, nil
}

func (p *DiscordProvisioner) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	if err := p.session.GuildMemberMove(guildID, userID, &channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to move member %s: %w", userID, err)
	}
	return nil
}

// DeleteChannel treats an already-deleted channel as success.
func (p *DiscordProvisioner) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := p.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			p.logger.Debug().Str("channel_id", channelID).Msg("channel already gone")
			return nil
		}
		return fmt.Errorf("failed to delete channel %s: %w", channelID, err)
	}
	return nil
}

// DiscordRoleSync keeps rank roles and nicknames aligned. Roles are
// matched to rank names; missing roles and permission failures are
// tolerated.
type DiscordRoleSync struct {
	session *discordgo.Session
	logger  zerolog.Logger
	isRank  func(name string) bool
}

func NewDiscordRoleSync(session *discordgo.Session, logger zerolog.Logger, isRank func(name string) bool) *DiscordRoleSync {
	return &DiscordRoleSync{session: session, logger: logger, isRank: isRank}
}

func (r *DiscordRoleSync) Sync(ctx context.Context, guildID, playerID, rankName, ign string, elo int) error {
	roles, err := r.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to list guild roles: %w", err)
	}

	member, err := r.session.GuildMember(guildID, playerID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to fetch member %s: %w", playerID, err)
	}

	held := make(map[string]string, len(member.Roles))
	for _, id := range member.Roles {
		for _, role := range roles {
			if role.ID == id {
				held[role.Name] = id
			}
		}
	}

	var wantID string
	for _, role := range roles {
		if role.Name == rankName {
			wantID = role.ID
			break
		}
	}

	// Drop rank roles that no longer match, then add the current one.
	for name, id := range held {
		if name != rankName && r.isRank(name) {
			if err := r.session.GuildMemberRoleRemove(guildID, playerID, id, discordgo.WithContext(ctx)); err != nil && !isStatus(err, http.StatusForbidden) {
				r.logger.Warn().Err(err).Str("player_id", playerID).Str("role", name).Msg("failed to remove rank role")
			}
		}
	}

	if wantID != "" {
		if _, ok := held[rankName]; !ok {
			if err := r.session.GuildMemberRoleAdd(guildID, playerID, wantID, discordgo.WithContext(ctx)); err != nil && !isStatus(err, http.StatusForbidden) {
				r.logger.Warn().Err(err).Str("player_id", playerID).Str("role", rankName).Msg("failed to add rank role")
			}
		}
	} else {
		r.logger.Debug().Str("rank", rankName).Msg("no guild role matches rank")
	}

	nick := fmt.Sprintf("%d - %s", elo, ign)
	if err := r.session.GuildMemberNickname(guildID, playerID, nick, discordgo.WithContext(ctx)); err != nil {
		if isStatus(err, http.StatusForbidden) {
			// Expected for members above the bot in the role hierarchy.
			return nil
		}
		return fmt.Errorf("failed to set nickname for %s: %w", playerID, err)
	}
	return nil
}

func isStatus(err error, code int) bool {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return rerr.Response.StatusCode == code
	}
	return false
}
