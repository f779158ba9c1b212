package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Joulessies/hansel-bot/internal/event"
	"github.com/Joulessies/hansel-bot/internal/storage"
)

func (b *Bot) registerCommands() error {
	modPerm := int64(discordgo.PermissionModerateMembers)
	adminPerm := int64(discordgo.PermissionAdministrator)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "ban",
			Description:              "Ban a member",
			DefaultMemberPermissions: &modPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to ban", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "delete_days", Description: "Days of messages to delete (0-7)"},
			},
		},
		{
			Name:                     "kick",
			Description:              "Kick a member",
			DefaultMemberPermissions: &modPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to kick", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason"},
			},
		},
		{
			Name:                     "mute",
			Description:              "Mute a member for a duration",
			DefaultMemberPermissions: &modPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to mute", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "minutes", Description: "Duration in minutes", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason"},
			},
		},
		{
			Name:                     "unmute",
			Description:              "Unmute a member",
			DefaultMemberPermissions: &modPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to unmute", Required: true},
			},
		},
		{
			Name:                     "warn",
			Description:              "Warn a member",
			DefaultMemberPermissions: &modPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to warn", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason", Required: true},
			},
		},
		{
			Name:                     "warnings",
			Description:              "List a member's warnings",
			DefaultMemberPermissions: &modPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
			},
		},
		{
			Name:                     "clearwarnings",
			Description:              "Clear a member's warnings",
			DefaultMemberPermissions: &modPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
			},
		},
		{
			Name:                     "purge",
			Description:              "Delete recent messages in this channel",
			DefaultMemberPermissions: &modPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "count", Description: "Messages to delete (1-100)", Required: true},
			},
		},
		{
			Name:                     "addcommand",
			Description:              "Add a custom text command",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Command name (without prefix)", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "response", Description: "Bot response", Required: true},
			},
		},
		{
			Name:                     "deletecommand",
			Description:              "Delete a custom text command",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Command name", Required: true},
			},
		},
		{
			Name:        "listcommands",
			Description: "List this server's custom commands",
		},
		{
			Name:                     "addreactionrole",
			Description:              "Bind an emoji on a message to a role",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "message_id", Description: "Target message id", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "emoji", Description: "Emoji", Required: true},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to grant", Required: true},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel of the message (defaults to current)"},
			},
		},
		{
			Name:                     "removereactionrole",
			Description:              "Remove an emoji-role binding from a message",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "message_id", Description: "Target message id", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "emoji", Description: "Emoji", Required: true},
			},
		},
		{
			Name:        "afk",
			Description: "Mark yourself AFK",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "AFK message"},
			},
		},
		{
			Name:        "level",
			Description: "Show a member's level",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member (defaults to you)"},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Show the server xp leaderboard",
		},
		{
			Name:                     "setautorole",
			Description:              "Set or clear the role given to new members",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role (omit to clear)"},
			},
		},
		{
			Name:                     "setlogchannel",
			Description:              "Set or clear the moderation log channel",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel (omit to clear)"},
			},
		},
		{
			Name:                     "setwelcomechannel",
			Description:              "Set or clear the welcome channel",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel (omit to clear)"},
			},
		},
		{
			Name:                     "setgoodbyechannel",
			Description:              "Set or clear the goodbye channel",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel (omit to clear)"},
			},
		},
		{
			Name:                     "setsuggestionchannel",
			Description:              "Set or clear the suggestion channel",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel (omit to clear)"},
			},
		},
		{
			Name:                     "automod",
			Description:              "View or change auto-moderation settings",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "What to do", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "view", Value: "view"},
						{Name: "enable", Value: "enable"},
						{Name: "disable", Value: "disable"},
						{Name: "threshold", Value: "threshold"},
						{Name: "words", Value: "words"},
						{Name: "whitelist-add", Value: "whitelist-add"},
						{Name: "whitelist-remove", Value: "whitelist-remove"},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "feature", Description: "Feature to change",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "spam", Value: "spam"},
						{Name: "profanity", Value: "profanity"},
						{Name: "links", Value: "links"},
						{Name: "massping", Value: "massping"},
					},
				},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "value", Description: "Threshold value"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "words", Description: "Comma-separated word list"},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to whitelist"},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to whitelist"},
			},
		},
		{
			Name:                     "announce",
			Description:              "Manage recurring announcements",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "What to do", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "schedule", Value: "schedule"},
						{Name: "list", Value: "list"},
						{Name: "enable", Value: "enable"},
						{Name: "disable", Value: "disable"},
						{Name: "delete", Value: "delete"},
					},
				},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Target channel"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "Announcement text"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "interval", Description: "Interval in minutes"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "Announcement id"},
			},
		},
		{
			Name:        "ping",
			Description: "Check bot latency",
		},
		{
			Name:        "serverinfo",
			Description: "Show server information",
		},
		{
			Name:                     "botconfig",
			Description:              "Show the bot's runtime configuration",
			DefaultMemberPermissions: &adminPerm,
		},
	}

	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("registering %s: %w", cmd.Name, err)
		}
	}
	return nil
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" {
		b.respond(session, interaction, "Commands only work in a server.", true)
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	opts := optionMap(data.Options)

	switch data.Name {
	case "ban":
		b.handleBan(ctx, session, interaction, opts)
	case "kick":
		b.handleKick(ctx, session, interaction, opts)
	case "mute":
		b.handleMute(ctx, session, interaction, opts)
	case "unmute":
		b.handleUnmute(ctx, session, interaction, opts)
	case "warn":
		b.handleWarn(ctx, session, interaction, opts)
	case "warnings":
		b.handleWarnings(ctx, session, interaction, opts)
	case "clearwarnings":
		b.handleClearWarnings(ctx, session, interaction, opts)
	case "purge":
		b.handlePurge(ctx, session, interaction, opts)
	case "addcommand":
		b.handleAddCommand(ctx, session, interaction, opts)
	case "deletecommand":
		b.handleDeleteCommand(ctx, session, interaction, opts)
	case "listcommands":
		b.handleListCommands(ctx, session, interaction)
	case "addreactionrole":
		b.handleAddReactionRole(ctx, session, interaction, opts)
	case "removereactionrole":
		b.handleRemoveReactionRole(ctx, session, interaction, opts)
	case "afk":
		b.handleAFK(ctx, session, interaction, opts)
	case "level":
		b.handleLevel(ctx, session, interaction, opts)
	case "leaderboard":
		b.handleLeaderboard(ctx, session, interaction)
	case "setautorole":
		b.handleSetSetting(ctx, session, interaction, opts, "autorole_id", "Autorole")
	case "setlogchannel":
		b.handleSetSetting(ctx, session, interaction, opts, "log_channel_id", "Log channel")
	case "setwelcomechannel":
		b.handleSetSetting(ctx, session, interaction, opts, "welcome_channel_id", "Welcome channel")
	case "setgoodbyechannel":
		b.handleSetSetting(ctx, session, interaction, opts, "goodbye_channel_id", "Goodbye channel")
	case "setsuggestionchannel":
		b.handleSetSetting(ctx, session, interaction, opts, "suggestion_channel_id", "Suggestion channel")
	case "automod":
		b.handleAutoMod(ctx, session, interaction, opts)
	case "announce":
		b.handleAnnounce(ctx, session, interaction, opts)
	case "ping":
		b.respond(session, interaction, fmt.Sprintf("Pong! %dms", session.HeartbeatLatency().Milliseconds()), false)
	case "serverinfo":
		b.handleServerInfo(session, interaction)
	case "botconfig":
		b.handleBotConfig(session, interaction)
	default:
		b.respond(session, interaction, "Unknown command.", true)
	}
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func (b *Bot) handleBan(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	user := opts["user"].UserValue(session)
	reason := ""
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}
	days := 0
	if opt, ok := opts["delete_days"]; ok {
		days = int(opt.IntValue())
		if days < 0 {
			days = 0
		}
		if days > 7 {
			days = 7
		}
	}

	err := b.Dispatch(ctx, event.Action{
		Kind:    event.ActionBan,
		GuildID: interaction.GuildID,
		Ban:     &event.Ban{UserID: user.ID, Reason: reason, DeleteDays: days},
	})
	if err != nil {
		b.respond(session, interaction, "Ban failed: "+err.Error(), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Member Banned",
		fmt.Sprintf("<@%s> was banned. Reason: %s", user.ID, orDefault(reason, "none")), colorError, nil), false)
}

func (b *Bot) handleKick(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	user := opts["user"].UserValue(session)
	reason := ""
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}

	err := b.Dispatch(ctx, event.Action{
		Kind:    event.ActionKick,
		GuildID: interaction.GuildID,
		Kick:    &event.Kick{UserID: user.ID, Reason: reason},
	})
	if err != nil {
		b.respond(session, interaction, "Kick failed: "+err.Error(), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Member Kicked",
		fmt.Sprintf("<@%s> was kicked. Reason: %s", user.ID, orDefault(reason, "none")), colorError, nil), false)
}

// handleMute prefers the platform timeout. When that fails (for example the
// duration exceeds what the platform allows) it falls back to a "Muted" role
// plus a mute record, which the scheduler lifts when it expires.
func (b *Bot) handleMute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	user := opts["user"].UserValue(session)
	minutes := int(opts["minutes"].IntValue())
	if minutes < 1 {
		b.respond(session, interaction, "Duration must be at least 1 minute.", true)
		return
	}
	until := time.Now().Add(time.Duration(minutes) * time.Minute)

	err := b.Dispatch(ctx, event.Action{
		Kind:    event.ActionTimeout,
		GuildID: interaction.GuildID,
		Timeout: &event.Timeout{UserID: user.ID, Until: until},
	})
	if err == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Member Muted",
			fmt.Sprintf("<@%s> is muted until <t:%d:f>.", user.ID, until.Unix()), colorWarning, nil), false)
		return
	}

	roleID := b.findMutedRole(interaction.GuildID)
	if roleID == "" {
		b.respond(session, interaction, "Mute failed: timeout rejected and no Muted role exists.", true)
		return
	}
	if err := b.Dispatch(ctx, event.Action{
		Kind:    event.ActionAddRole,
		GuildID: interaction.GuildID,
		AddRole: &event.RoleChange{UserID: user.ID, RoleID: roleID},
	}); err != nil {
		b.respond(session, interaction, "Mute failed: "+err.Error(), true)
		return
	}
	if err := b.store.UpsertMute(ctx, storage.Mute{
		GuildID:    interaction.GuildID,
		UserID:     user.ID,
		MuteRoleID: roleID,
		UnmuteAt:   &until,
	}); err != nil {
		b.logger.Error("recording mute", zap.Error(err))
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Member Muted",
		fmt.Sprintf("<@%s> is muted until <t:%d:f> (role).", user.ID, until.Unix()), colorWarning, nil), false)
}

func (b *Bot) handleUnmute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	user := opts["user"].UserValue(session)

	// Lift a timeout if one is active; ignore failure since the member may
	// be role-muted instead.
	_ = session.GuildMemberTimeout(interaction.GuildID, user.ID, nil)

	mute, err := b.store.GetMute(ctx, interaction.GuildID, user.ID)
	if err != nil {
		b.respond(session, interaction, "Unmute failed: "+err.Error(), true)
		return
	}
	if mute != nil {
		if err := b.Dispatch(ctx, event.Action{
			Kind:       event.ActionRemoveRole,
			GuildID:    interaction.GuildID,
			RemoveRole: &event.RoleChange{UserID: user.ID, RoleID: mute.MuteRoleID},
		}); err != nil {
			b.respond(session, interaction, "Unmute failed: "+err.Error(), true)
			return
		}
		if err := b.store.DeleteMute(ctx, interaction.GuildID, user.ID); err != nil {
			b.logger.Error("deleting mute record", zap.Error(err))
		}
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Member Unmuted",
		fmt.Sprintf("<@%s> can speak again.", user.ID), colorSuccess, nil), false)
}

func (b *Bot) findMutedRole(guildID string) string {
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, _ = b.session.Guild(guildID)
	}
	if guild == nil {
		return ""
	}
	for _, role := range guild.Roles {
		if strings.EqualFold(role.Name, "Muted") {
			return role.ID
		}
	}
	return ""
}

func (b *Bot) handleWarn(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	user := opts["user"].UserValue(session)
	reason := opts["reason"].StringValue()
	moderatorID := interactionUserID(interaction)

	warning, err := b.store.AddWarning(ctx, interaction.GuildID, user.ID, moderatorID, reason, time.Now())
	if err != nil {
		b.respond(session, interaction, "Warning failed: "+err.Error(), true)
		return
	}

	// Best effort DM; the member may have DMs closed.
	if channel, err := session.UserChannelCreate(user.ID); err == nil {
		_, _ = session.ChannelMessageSend(channel.ID,
			fmt.Sprintf("You were warned in a server you are in. Reason: %s", reason))
	}

	b.respondEmbed(session, interaction, b.commandEmbed("Member Warned",
		fmt.Sprintf("<@%s> was warned (id `%s`). Reason: %s", user.ID, warning.ID, reason), colorWarning, nil), false)
}

func (b *Bot) handleWarnings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	user := opts["user"].UserValue(session)
	warnings, err := b.store.ListWarnings(ctx, interaction.GuildID, user.ID)
	if err != nil {
		b.respond(session, interaction, "Could not load warnings: "+err.Error(), true)
		return
	}
	if len(warnings) == 0 {
		b.respond(session, interaction, fmt.Sprintf("<@%s> has no warnings.", user.ID), true)
		return
	}

	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, fmt.Sprintf("`%s` <t:%d:d> by <@%s>: %s", w.ID, w.CreatedAt.Unix(), w.ModeratorID, orDefault(w.Reason, "no reason")))
	}
	b.respondEmbed(session, interaction, b.commandEmbed(
		fmt.Sprintf("Warnings (%d)", len(warnings)),
		strings.Join(lines, "\n"), colorWarning, nil), true)
}

func (b *Bot) handleClearWarnings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	user := opts["user"].UserValue(session)
	cleared, err := b.store.ClearWarnings(ctx, interaction.GuildID, user.ID)
	if err != nil {
		b.respond(session, interaction, "Clearing warnings failed: "+err.Error(), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("Cleared %d warning(s) for <@%s>.", cleared, user.ID), false)
}

func (b *Bot) handlePurge(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	_ = ctx
	count := int(opts["count"].IntValue())
	if count < 1 || count > 100 {
		b.respond(session, interaction, "Count must be between 1 and 100.", true)
		return
	}

	messages, err := session.ChannelMessages(interaction.ChannelID, count, "", "", "")
	if err != nil {
		b.respond(session, interaction, "Purge failed: "+err.Error(), true)
		return
	}
	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.ID)
	}
	if err := session.ChannelMessagesBulkDelete(interaction.ChannelID, ids); err != nil {
		b.respond(session, interaction, "Purge failed: "+err.Error(), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("Deleted %d message(s).", len(ids)), true)
}

func (b *Bot) handleAddCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	name := opts["name"].StringValue()
	response := opts["response"].StringValue()

	err := b.store.AddCustomCommand(ctx, interaction.GuildID, name, response)
	if err == storage.ErrDuplicateCommand {
		b.respond(session, interaction, fmt.Sprintf("Command `%s%s` already exists.", commandPrefix, strings.ToLower(name)), true)
		return
	}
	if err != nil {
		b.respond(session, interaction, "Adding command failed: "+err.Error(), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("Added `%s%s`.", commandPrefix, strings.ToLower(name)), false)
}

func (b *Bot) handleDeleteCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	name := opts["name"].StringValue()
	removed, err := b.store.DeleteCustomCommand(ctx, interaction.GuildID, name)
	if err != nil {
		b.respond(session, interaction, "Deleting command failed: "+err.Error(), true)
		return
	}
	if !removed {
		b.respond(session, interaction, fmt.Sprintf("No command named `%s%s`.", commandPrefix, strings.ToLower(name)), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("Deleted `%s%s`.", commandPrefix, strings.ToLower(name)), false)
}

func (b *Bot) handleListCommands(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	commands, err := b.store.ListCustomCommands(ctx, interaction.GuildID)
	if err != nil {
		b.respond(session, interaction, "Could not load commands: "+err.Error(), true)
		return
	}
	if len(commands) == 0 {
		b.respond(session, interaction, "This server has no custom commands.", true)
		return
	}
	names := make([]string, 0, len(commands))
	for _, cmd := range commands {
		names = append(names, commandPrefix+cmd.Name)
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Custom Commands",
		strings.Join(names, ", "), colorInfo, nil), true)
}

func (b *Bot) handleAddReactionRole(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	messageID := opts["message_id"].StringValue()
	emoji := opts["emoji"].StringValue()
	role := opts["role"].RoleValue(session, interaction.GuildID)
	channelID := interaction.ChannelID
	if opt, ok := opts["channel"]; ok {
		if channel := opt.ChannelValue(session); channel != nil {
			channelID = channel.ID
		}
	}

	if _, err := b.store.AddReactionRole(ctx, storage.ReactionRole{
		GuildID:   interaction.GuildID,
		MessageID: messageID,
		ChannelID: channelID,
		Emoji:     emoji,
		RoleID:    role.ID,
	}); err != nil {
		b.respond(session, interaction, "Adding reaction role failed: "+err.Error(), true)
		return
	}

	// Seed the reaction so members have something to click.
	if err := b.Dispatch(ctx, event.Action{
		Kind:        event.ActionAddReaction,
		GuildID:     interaction.GuildID,
		AddReaction: &event.AddReaction{ChannelID: channelID, MessageID: messageID, Emoji: emoji},
	}); err != nil {
		b.logger.Warn("seeding reaction", zap.Error(err))
	}

	b.respond(session, interaction, fmt.Sprintf("Reacting with %s on that message now grants <@&%s>.", emoji, role.ID), false)
}

func (b *Bot) handleRemoveReactionRole(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	messageID := opts["message_id"].StringValue()
	emoji := opts["emoji"].StringValue()

	removed, err := b.store.RemoveReactionRole(ctx, interaction.GuildID, messageID, emoji)
	if err != nil {
		b.respond(session, interaction, "Removing reaction role failed: "+err.Error(), true)
		return
	}
	if !removed {
		b.respond(session, interaction, "No such reaction role binding.", true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("Removed the %s binding from that message.", emoji), false)
}

func (b *Bot) handleAFK(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	message := "AFK"
	if opt, ok := opts["message"]; ok && opt.StringValue() != "" {
		message = opt.StringValue()
	}
	userID := interactionUserID(interaction)
	if err := b.store.SetAFK(ctx, interaction.GuildID, userID, message, time.Now()); err != nil {
		b.respond(session, interaction, "Setting AFK failed: "+err.Error(), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("You are now AFK: %s", message), true)
}

func (b *Bot) handleLevel(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	userID := interactionUserID(interaction)
	if opt, ok := opts["user"]; ok {
		userID = opt.UserValue(session).ID
	}

	ul, err := b.levels.UserLevel(ctx, interaction.GuildID, userID)
	if err != nil {
		b.respond(session, interaction, "Could not load level: "+err.Error(), true)
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Level", Value: fmt.Sprintf("%d", ul.Level), Inline: true},
		{Name: "XP", Value: fmt.Sprintf("%d", ul.XP), Inline: true},
		{Name: "Messages", Value: fmt.Sprintf("%d", ul.TotalMessages), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Level",
		fmt.Sprintf("Stats for <@%s>", userID), colorInfo, fields), false)
}

func (b *Bot) handleLeaderboard(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	board, err := b.levels.Leaderboard(ctx, interaction.GuildID, 10)
	if err != nil {
		b.respond(session, interaction, "Could not load leaderboard: "+err.Error(), true)
		return
	}
	if len(board) == 0 {
		b.respond(session, interaction, "Nobody has earned xp yet.", true)
		return
	}
	lines := make([]string, 0, len(board))
	for i, entry := range board {
		lines = append(lines, fmt.Sprintf("%d. <@%s>: level %d (%d xp)", i+1, entry.UserID, entry.Level, entry.XP))
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Leaderboard",
		strings.Join(lines, "\n"), colorInfo, nil), false)
}

// handleSetSetting covers the four set*/clear commands. Passing no option
// clears the setting; a clear that fails verification is surfaced, never
// swallowed.
func (b *Bot) handleSetSetting(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption, column, label string) {
	var value *string
	mention := ""
	if opt, ok := opts["role"]; ok {
		if role := opt.RoleValue(session, interaction.GuildID); role != nil {
			value = &role.ID
			mention = fmt.Sprintf("<@&%s>", role.ID)
		}
	}
	if opt, ok := opts["channel"]; ok {
		if channel := opt.ChannelValue(session); channel != nil {
			value = &channel.ID
			mention = fmt.Sprintf("<#%s>", channel.ID)
		}
	}

	if err := b.store.UpdateServerSetting(ctx, interaction.GuildID, column, value); err != nil {
		if err == storage.ErrClearNotVerified {
			b.respond(session, interaction, label+" could NOT be cleared; it is still active. Try again.", true)
			return
		}
		b.respond(session, interaction, "Updating setting failed: "+err.Error(), true)
		return
	}

	if value == nil {
		b.respond(session, interaction, label+" cleared.", false)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("%s set to %s.", label, mention), false)
}

func (b *Bot) handleAutoMod(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	action := opts["action"].StringValue()
	feature := ""
	if opt, ok := opts["feature"]; ok {
		feature = opt.StringValue()
	}

	toggleColumn := map[string]string{
		"spam":      "spam_enabled",
		"profanity": "profanity_enabled",
		"links":     "links_enabled",
		"massping":  "mass_ping_enabled",
	}
	thresholdColumn := map[string]string{
		"spam":     "spam_threshold",
		"massping": "ping_threshold",
	}

	switch action {
	case "view":
		cfg, err := b.store.GetAutoModConfig(ctx, interaction.GuildID)
		if err != nil {
			b.respond(session, interaction, "Could not load config: "+err.Error(), true)
			return
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Spam", Value: fmt.Sprintf("%s (threshold %d)", onOff(cfg.SpamEnabled), cfg.SpamThreshold), Inline: true},
			{Name: "Profanity", Value: onOff(cfg.ProfanityEnabled), Inline: true},
			{Name: "Links", Value: onOff(cfg.LinksEnabled), Inline: true},
			{Name: "Mass ping", Value: fmt.Sprintf("%s (threshold %d)", onOff(cfg.MassPingEnabled), cfg.PingThreshold), Inline: true},
			{Name: "Custom words", Value: fmt.Sprintf("%d", len(cfg.ProfanityList)), Inline: true},
			{Name: "Whitelisted", Value: fmt.Sprintf("%d roles, %d channels", len(cfg.WhitelistedRoles), len(cfg.WhitelistedChannels)), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Auto-moderation", "Current settings", colorInfo, fields), true)
	case "enable", "disable":
		column, ok := toggleColumn[feature]
		if !ok {
			b.respond(session, interaction, "Pick a feature: spam, profanity, links, or massping.", true)
			return
		}
		if err := b.store.SetAutoModToggle(ctx, interaction.GuildID, column, action == "enable"); err != nil {
			b.respond(session, interaction, "Updating failed: "+err.Error(), true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("%s filter %sd.", feature, action), false)
	case "threshold":
		column, ok := thresholdColumn[feature]
		if !ok {
			b.respond(session, interaction, "Thresholds exist for spam and massping only.", true)
			return
		}
		opt, ok := opts["value"]
		if !ok {
			b.respond(session, interaction, "Provide a value.", true)
			return
		}
		value := int(opt.IntValue())
		if err := b.store.SetAutoModThreshold(ctx, interaction.GuildID, column, value); err != nil {
			b.respond(session, interaction, "Updating failed: "+err.Error(), true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("%s threshold set to %d.", feature, value), false)
	case "words":
		var words []string
		if opt, ok := opts["words"]; ok && opt.StringValue() != "" {
			words = strings.Split(opt.StringValue(), ",")
		}
		if err := b.store.SetProfanityList(ctx, interaction.GuildID, words); err != nil {
			b.respond(session, interaction, "Updating failed: "+err.Error(), true)
			return
		}
		if len(words) == 0 {
			b.respond(session, interaction, "Word list cleared; the built-in list is active again.", false)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Word list replaced (%d entries).", len(words)), false)
	case "whitelist-add", "whitelist-remove":
		add := action == "whitelist-add"
		if opt, ok := opts["role"]; ok {
			role := opt.RoleValue(session, interaction.GuildID)
			var err error
			if add {
				err = b.store.AddWhitelistedRole(ctx, interaction.GuildID, role.ID)
			} else {
				err = b.store.RemoveWhitelistedRole(ctx, interaction.GuildID, role.ID)
			}
			if err != nil {
				b.respond(session, interaction, "Updating whitelist failed: "+err.Error(), true)
				return
			}
			b.respond(session, interaction, fmt.Sprintf("Whitelist updated for <@&%s>.", role.ID), false)
			return
		}
		if opt, ok := opts["channel"]; ok {
			channel := opt.ChannelValue(session)
			var err error
			if add {
				err = b.store.AddWhitelistedChannel(ctx, interaction.GuildID, channel.ID)
			} else {
				err = b.store.RemoveWhitelistedChannel(ctx, interaction.GuildID, channel.ID)
			}
			if err != nil {
				b.respond(session, interaction, "Updating whitelist failed: "+err.Error(), true)
				return
			}
			b.respond(session, interaction, fmt.Sprintf("Whitelist updated for <#%s>.", channel.ID), false)
			return
		}
		b.respond(session, interaction, "Provide a role or a channel.", true)
	default:
		b.respond(session, interaction, "Unknown action.", true)
	}
}

func (b *Bot) handleAnnounce(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	action := opts["action"].StringValue()

	switch action {
	case "schedule":
		channelOpt, okChannel := opts["channel"]
		messageOpt, okMessage := opts["message"]
		intervalOpt, okInterval := opts["interval"]
		if !okChannel || !okMessage || !okInterval {
			b.respond(session, interaction, "Schedule needs channel, message, and interval.", true)
			return
		}
		interval := int(intervalOpt.IntValue())
		if interval < 1 {
			b.respond(session, interaction, "Interval must be at least 1 minute.", true)
			return
		}
		channel := channelOpt.ChannelValue(session)
		a, err := b.store.AddAnnouncement(ctx, interaction.GuildID, channel.ID, messageOpt.StringValue(), interval, time.Now())
		if err != nil {
			b.respond(session, interaction, "Scheduling failed: "+err.Error(), true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Scheduled `%s`: every %d minute(s) in <#%s>, first run <t:%d:R>.",
			a.ID, interval, channel.ID, a.NextRun.Unix()), false)
	case "list":
		announcements, err := b.store.ListAnnouncements(ctx, interaction.GuildID)
		if err != nil {
			b.respond(session, interaction, "Could not load announcements: "+err.Error(), true)
			return
		}
		if len(announcements) == 0 {
			b.respond(session, interaction, "No announcements scheduled.", true)
			return
		}
		lines := make([]string, 0, len(announcements))
		for _, a := range announcements {
			state := "enabled"
			if !a.Enabled {
				state = "disabled"
			}
			lines = append(lines, fmt.Sprintf("`%s` <#%s> every %dm, next <t:%d:R> (%s): %s",
				a.ID, a.ChannelID, a.IntervalMinutes, a.NextRun.Unix(), state, truncate(a.Message, 80)))
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Announcements",
			strings.Join(lines, "\n"), colorInfo, nil), true)
	case "enable", "disable":
		idOpt, ok := opts["id"]
		if !ok {
			b.respond(session, interaction, "Provide the announcement id.", true)
			return
		}
		found, err := b.store.SetAnnouncementEnabled(ctx, idOpt.StringValue(), action == "enable")
		if err != nil {
			b.respond(session, interaction, "Updating failed: "+err.Error(), true)
			return
		}
		if !found {
			b.respond(session, interaction, "No announcement with that id.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Announcement %sd.", action), false)
	case "delete":
		idOpt, ok := opts["id"]
		if !ok {
			b.respond(session, interaction, "Provide the announcement id.", true)
			return
		}
		removed, err := b.store.DeleteAnnouncement(ctx, idOpt.StringValue())
		if err != nil {
			b.respond(session, interaction, "Deleting failed: "+err.Error(), true)
			return
		}
		if !removed {
			b.respond(session, interaction, "No announcement with that id.", true)
			return
		}
		b.respond(session, interaction, "Announcement deleted.", false)
	default:
		b.respond(session, interaction, "Unknown action.", true)
	}
}

func (b *Bot) handleServerInfo(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	guild, err := session.State.Guild(interaction.GuildID)
	if err != nil || guild == nil {
		guild, err = session.Guild(interaction.GuildID)
		if err != nil || guild == nil {
			b.respond(session, interaction, "Could not load server info.", true)
			return
		}
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Members", Value: fmt.Sprintf("%d", guild.MemberCount), Inline: true},
		{Name: "Channels", Value: fmt.Sprintf("%d", len(guild.Channels)), Inline: true},
		{Name: "Roles", Value: fmt.Sprintf("%d", len(guild.Roles)), Inline: true},
		{Name: "Owner", Value: "<@" + guild.OwnerID + ">", Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed(guild.Name, "Server overview", colorInfo, fields), false)
}

func (b *Bot) handleBotConfig(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Spam window", Value: fmt.Sprintf("%ds", b.cfg.AutoMod.SpamWindowSeconds), Inline: true},
		{Name: "Spam threshold", Value: fmt.Sprintf("%d", b.cfg.AutoMod.SpamThreshold), Inline: true},
		{Name: "Ping threshold", Value: fmt.Sprintf("%d", b.cfg.AutoMod.PingThreshold), Inline: true},
		{Name: "XP per message", Value: fmt.Sprintf("%d", b.cfg.Leveling.XPPerMessage), Inline: true},
		{Name: "Sweep interval", Value: fmt.Sprintf("%ds", b.cfg.Scheduler.IntervalSeconds), Inline: true},
		{Name: "Log level", Value: b.cfg.LogLevel, Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Bot Configuration", "Runtime defaults", colorInfo, fields), true)
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

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
