// Package platform holds the contracts the core honors toward the chat
// platform: channel provisioning, notifications, and role/nickname sync.
// Command registration, embed composition and gateway handling live
// outside this repository.
package platform

import "context"

// ChannelProvisioner creates and tears down the channel structure for one
// game. All operations are fallible; callers treat teardown failures as
// best-effort.
type ChannelProvisioner interface {
	CreateCategory(ctx context.Context, guildID, name string) (string, error)
	CreateTextChannel(ctx context.Context, guildID, categoryID, name string) (string, error)
	CreateVoiceChannel(ctx context.Context, guildID, categoryID, name string) (string, error)
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// NotificationField is one labeled value in a notification.
type NotificationField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Notification is a structured message for the configured audit channel.
type Notification struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []NotificationField `json:"fields,omitempty"`
}

// Notifier posts to the audit channel. Failures are logged by callers and
// never block the transition that produced the notification.
type Notifier interface {
	Post(ctx context.Context, n Notification) error
}

// RoleSync idempotently aligns a member's rank role and nickname with
// their current stats. Permission-denied is an expected outcome, not an
// error.
type RoleSync interface {
	Sync(ctx context.Context, guildID, playerID, rankName, ign string, elo int) error
}
