package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Joulessies/hansel-bot/internal/automod"
	"github.com/Joulessies/hansel-bot/internal/event"
)

// Gateway handlers normalize discordgo payloads into event.Event and feed
// them through handleEvent, the single entry point for all guild activity.

func (b *Bot) onMessageCreate(_ *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.GuildID == "" {
		return
	}

	var roles []string
	if msg.Member != nil {
		roles = msg.Member.Roles
	}

	b.handleEvent(context.Background(), event.Event{
		Kind:    event.KindMessageCreate,
		GuildID: msg.GuildID,
		MessageCreate: &event.Message{
			MessageID:      msg.ID,
			ChannelID:      msg.ChannelID,
			AuthorID:       msg.Author.ID,
			AuthorBot:      msg.Author.Bot,
			Content:        msg.Content,
			AuthorRoles:    roles,
			MentionedUsers: mentionIDs(msg.Mentions),
			MentionedRoles: msg.MentionRoles,
		},
	})
}

func mentionIDs(users []*discordgo.User) []string {
	ids := make([]string, 0, len(users))
	for _, user := range users {
		if user != nil {
			ids = append(ids, user.ID)
		}
	}
	return ids
}

func (b *Bot) onMessageUpdate(_ *discordgo.Session, msg *discordgo.MessageUpdate) {
	if msg.GuildID == "" || msg.Author == nil || msg.Author.Bot {
		return
	}
	roles := b.memberRoles(msg.GuildID, msg.Author.ID, msg.Member)
	b.handleEvent(context.Background(), event.Event{
		Kind:    event.KindMessageEdit,
		GuildID: msg.GuildID,
		MessageEdit: &event.MessageEdit{
			MessageID:      msg.ID,
			ChannelID:      msg.ChannelID,
			AuthorID:       msg.Author.ID,
			NewContent:     msg.Content,
			AuthorRoles:    roles,
			MentionedUsers: mentionIDs(msg.Mentions),
			MentionedRoles: msg.MentionRoles,
		},
	})
}

// memberRoles prefers the roles carried on the gateway payload and falls back
// to the session cache, so role whitelisting holds on edits too.
func (b *Bot) memberRoles(guildID, userID string, member *discordgo.Member) []string {
	if member != nil {
		return member.Roles
	}
	if b.session.State != nil {
		if cached, err := b.session.State.Member(guildID, userID); err == nil && cached != nil {
			return cached.Roles
		}
	}
	return nil
}

func (b *Bot) onMessageDelete(_ *discordgo.Session, msg *discordgo.MessageDelete) {
	if msg.GuildID == "" {
		return
	}
	b.handleEvent(context.Background(), event.Event{
		Kind:    event.KindMessageDelete,
		GuildID: msg.GuildID,
		MessageDelete: &event.MessageDelete{
			MessageID: msg.ID,
			ChannelID: msg.ChannelID,
		},
	})
}

func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, member *discordgo.GuildMemberAdd) {
	if member.GuildID == "" || member.User == nil {
		return
	}
	b.handleEvent(context.Background(), event.Event{
		Kind:    event.KindMemberJoin,
		GuildID: member.GuildID,
		MemberJoin: &event.Member{
			UserID:   member.User.ID,
			Username: member.User.Username,
		},
	})
}

func (b *Bot) onGuildMemberRemove(_ *discordgo.Session, member *discordgo.GuildMemberRemove) {
	if member.GuildID == "" || member.User == nil {
		return
	}
	b.handleEvent(context.Background(), event.Event{
		Kind:    event.KindMemberRemove,
		GuildID: member.GuildID,
		MemberRemove: &event.Member{
			UserID:   member.User.ID,
			Username: member.User.Username,
		},
	})
}

func (b *Bot) onGuildBanAdd(_ *discordgo.Session, ban *discordgo.GuildBanAdd) {
	if ban.GuildID == "" || ban.User == nil {
		return
	}
	b.handleEvent(context.Background(), event.Event{
		Kind:    event.KindMemberBan,
		GuildID: ban.GuildID,
		MemberBan: &event.Member{
			UserID:   ban.User.ID,
			Username: ban.User.Username,
		},
	})
}

func (b *Bot) onMessageReactionAdd(_ *discordgo.Session, reaction *discordgo.MessageReactionAdd) {
	if reaction.GuildID == "" {
		return
	}
	b.handleEvent(context.Background(), event.Event{
		Kind:    event.KindReactionAdd,
		GuildID: reaction.GuildID,
		ReactionAdd: &event.Reaction{
			MessageID: reaction.MessageID,
			ChannelID: reaction.ChannelID,
			UserID:    reaction.UserID,
			Emoji:     reaction.Emoji.Name,
		},
	})
}

func (b *Bot) onMessageReactionRemove(_ *discordgo.Session, reaction *discordgo.MessageReactionRemove) {
	if reaction.GuildID == "" {
		return
	}
	b.handleEvent(context.Background(), event.Event{
		Kind:    event.KindReactionRemove,
		GuildID: reaction.GuildID,
		ReactionRemove: &event.Reaction{
			MessageID: reaction.MessageID,
			ChannelID: reaction.ChannelID,
			UserID:    reaction.UserID,
			Emoji:     reaction.Emoji.Name,
		},
	})
}

func (b *Bot) handleEvent(ctx context.Context, ev event.Event) {
	switch ev.Kind {
	case event.KindMessageCreate:
		b.handleMessage(ctx, ev.GuildID, ev.MessageCreate)
	case event.KindMessageEdit:
		b.handleMessageEdit(ctx, ev.GuildID, ev.MessageEdit)
	case event.KindMessageDelete:
		b.handleMessageDelete(ctx, ev.GuildID, ev.MessageDelete)
	case event.KindMemberJoin:
		b.handleMemberJoin(ctx, ev.GuildID, ev.MemberJoin)
	case event.KindMemberRemove:
		b.handleMemberRemove(ctx, ev.GuildID, ev.MemberRemove)
	case event.KindMemberBan:
		b.handleMemberBan(ctx, ev.GuildID, ev.MemberBan)
	case event.KindReactionAdd:
		b.handleReaction(ctx, ev.GuildID, ev.ReactionAdd, true)
	case event.KindReactionRemove:
		b.handleReaction(ctx, ev.GuildID, ev.ReactionRemove, false)
	}
}

// handleMessage is the main pipeline: custom commands, auto-moderation, AFK
// bookkeeping, then xp. A moderated message earns nothing further.
func (b *Bot) handleMessage(ctx context.Context, guildID string, msg *event.Message) {
	if msg.AuthorBot {
		return
	}

	if strings.HasPrefix(msg.Content, commandPrefix) {
		if b.handleCustomCommand(ctx, guildID, msg) {
			return
		}
	}

	if b.enforceAutoMod(ctx, guildID, msg, false) {
		return
	}

	b.handleAFKMentions(ctx, guildID, msg)
	b.clearAFKOnActivity(ctx, guildID, msg)

	result, err := b.levels.AddMessageXP(ctx, guildID, msg.AuthorID)
	if err != nil {
		b.logger.Warn("awarding xp", zap.Error(err))
		return
	}
	if result.LeveledUp {
		content := fmt.Sprintf("🎉 <@%s> reached level %d!", msg.AuthorID, result.Level)
		_ = b.Dispatch(ctx, event.Action{
			Kind:        event.ActionSendMessage,
			GuildID:     guildID,
			SendMessage: &event.SendMessage{ChannelID: msg.ChannelID, Content: content},
		})
	}
}

func (b *Bot) handleCustomCommand(ctx context.Context, guildID string, msg *event.Message) bool {
	name := strings.TrimPrefix(strings.Fields(msg.Content)[0], commandPrefix)
	if name == "" {
		return false
	}
	cmd, err := b.store.GetCustomCommand(ctx, guildID, name)
	if err != nil {
		b.logger.Warn("looking up custom command", zap.Error(err))
		return false
	}
	if cmd == nil {
		return false
	}
	_ = b.Dispatch(ctx, event.Action{
		Kind:        event.ActionSendMessage,
		GuildID:     guildID,
		SendMessage: &event.SendMessage{ChannelID: msg.ChannelID, Content: cmd.Response},
	})
	return true
}

// enforceAutoMod reports whether the message was removed. Edits go through
// the stateless content checks only; the spam window counts fresh messages.
func (b *Bot) enforceAutoMod(ctx context.Context, guildID string, msg *event.Message, edited bool) bool {
	cfg, err := b.store.GetAutoModConfig(ctx, guildID)
	if err != nil {
		b.logger.Warn("loading automod config", zap.Error(err))
		return false
	}

	candidate := automod.Message{
		GuildID:        guildID,
		AuthorID:       msg.AuthorID,
		ChannelID:      msg.ChannelID,
		Content:        msg.Content,
		AuthorRoles:    msg.AuthorRoles,
		MentionedUsers: msg.MentionedUsers,
		MentionedRoles: msg.MentionedRoles,
	}
	var violation *automod.Action
	if edited {
		violation = b.evaluator.EvaluateEdit(candidate, cfg)
	} else {
		violation = b.evaluator.Evaluate(candidate, cfg)
	}
	if violation == nil {
		return false
	}

	if err := b.Dispatch(ctx, event.Action{
		Kind:          event.ActionDeleteMessage,
		GuildID:       guildID,
		DeleteMessage: &event.DeleteMessage{ChannelID: msg.ChannelID, MessageID: msg.MessageID},
	}); err != nil {
		b.logger.Warn("deleting flagged message",
			zap.String("guild_id", guildID),
			zap.String("message_id", msg.MessageID),
			zap.Error(err))
	}

	if violation.Kind == automod.ActionDeleteWarn {
		content := fmt.Sprintf("<@%s>, %s.", msg.AuthorID, violation.Reason)
		_ = b.Dispatch(ctx, event.Action{
			Kind:        event.ActionSendMessage,
			GuildID:     guildID,
			SendMessage: &event.SendMessage{ChannelID: msg.ChannelID, Content: content},
		})
	}

	b.logger.Info("automod violation",
		zap.String("guild_id", guildID),
		zap.String("user_id", msg.AuthorID),
		zap.String("reason", violation.Reason))
	return true
}

func (b *Bot) handleAFKMentions(ctx context.Context, guildID string, msg *event.Message) {
	for _, userID := range msg.MentionedUsers {
		status, err := b.store.GetAFK(ctx, guildID, userID)
		if err != nil {
			b.logger.Warn("checking afk status", zap.Error(err))
			continue
		}
		if status == nil {
			continue
		}
		note := fmt.Sprintf("<@%s> is AFK: %s (since <t:%d:R>)", userID, status.Message, status.Since.Unix())
		_ = b.Dispatch(ctx, event.Action{
			Kind:        event.ActionSendMessage,
			GuildID:     guildID,
			SendMessage: &event.SendMessage{ChannelID: msg.ChannelID, Content: note},
		})
	}
}

func (b *Bot) clearAFKOnActivity(ctx context.Context, guildID string, msg *event.Message) {
	cleared, err := b.store.ClearAFK(ctx, guildID, msg.AuthorID)
	if err != nil {
		b.logger.Warn("clearing afk status", zap.Error(err))
		return
	}
	if !cleared {
		return
	}
	content := fmt.Sprintf("Welcome back <@%s>, your AFK status was removed.", msg.AuthorID)
	_ = b.Dispatch(ctx, event.Action{
		Kind:        event.ActionSendMessage,
		GuildID:     guildID,
		SendMessage: &event.SendMessage{ChannelID: msg.ChannelID, Content: content},
	})
}

func (b *Bot) handleMessageEdit(ctx context.Context, guildID string, msg *event.MessageEdit) {
	b.sendToLogChannel(ctx, guildID, b.commandEmbed(
		"Message Edited",
		fmt.Sprintf("<@%s> edited a message in <#%s>.\n**New content:** %s", msg.AuthorID, msg.ChannelID, truncate(msg.NewContent, 1000)),
		colorWarning, nil))

	// Edited content goes back through moderation.
	b.enforceAutoMod(ctx, guildID, &event.Message{
		MessageID:      msg.MessageID,
		ChannelID:      msg.ChannelID,
		AuthorID:       msg.AuthorID,
		Content:        msg.NewContent,
		AuthorRoles:    msg.AuthorRoles,
		MentionedUsers: msg.MentionedUsers,
		MentionedRoles: msg.MentionedRoles,
	}, true)
}

func (b *Bot) handleMessageDelete(ctx context.Context, guildID string, msg *event.MessageDelete) {
	b.sendToLogChannel(ctx, guildID, b.commandEmbed(
		"Message Deleted",
		fmt.Sprintf("A message was deleted in <#%s>.", msg.ChannelID),
		colorError, nil))
}

func (b *Bot) handleMemberJoin(ctx context.Context, guildID string, member *event.Member) {
	settings, err := b.store.GetServerSettings(ctx, guildID)
	if err != nil {
		b.logger.Warn("loading settings on join", zap.Error(err))
		return
	}

	if settings.WelcomeChannelID != nil {
		content := fmt.Sprintf("Welcome to the server, <@%s>! 👋", member.UserID)
		_ = b.Dispatch(ctx, event.Action{
			Kind:        event.ActionSendMessage,
			GuildID:     guildID,
			SendMessage: &event.SendMessage{ChannelID: *settings.WelcomeChannelID, Content: content},
		})
	}

	if settings.AutoroleID != nil {
		if err := b.Dispatch(ctx, event.Action{
			Kind:    event.ActionAddRole,
			GuildID: guildID,
			AddRole: &event.RoleChange{UserID: member.UserID, RoleID: *settings.AutoroleID},
		}); err != nil {
			b.logger.Warn("assigning autorole",
				zap.String("guild_id", guildID),
				zap.String("user_id", member.UserID),
				zap.Error(err))
		}
	}
}

func (b *Bot) handleMemberRemove(ctx context.Context, guildID string, member *event.Member) {
	settings, err := b.store.GetServerSettings(ctx, guildID)
	if err != nil {
		b.logger.Warn("loading settings on leave", zap.Error(err))
		return
	}

	if settings.GoodbyeChannelID != nil {
		content := fmt.Sprintf("**%s** has left the server.", member.Username)
		_ = b.Dispatch(ctx, event.Action{
			Kind:        event.ActionSendMessage,
			GuildID:     guildID,
			SendMessage: &event.SendMessage{ChannelID: *settings.GoodbyeChannelID, Content: content},
		})
	}

	// A remove right after a kick audit entry means it was a kick, not a
	// voluntary leave.
	if actor := b.resolveAuditActor(guildID, discordgo.AuditLogActionMemberKick, member.UserID); actor != "" {
		b.sendToLogChannel(ctx, guildID, b.commandEmbed(
			"Member Kicked",
			fmt.Sprintf("**%s** was kicked by <@%s>.", member.Username, actor),
			colorError, nil))
	}
}

func (b *Bot) handleMemberBan(ctx context.Context, guildID string, member *event.Member) {
	description := fmt.Sprintf("**%s** was banned.", member.Username)
	if actor := b.resolveAuditActor(guildID, discordgo.AuditLogActionMemberBanAdd, member.UserID); actor != "" {
		description = fmt.Sprintf("**%s** was banned by <@%s>.", member.Username, actor)
	}
	b.sendToLogChannel(ctx, guildID, b.commandEmbed("Member Banned", description, colorError, nil))
}

func (b *Bot) handleReaction(ctx context.Context, guildID string, reaction *event.Reaction, added bool) {
	if b.session.State != nil && b.session.State.User != nil && reaction.UserID == b.session.State.User.ID {
		return
	}

	bindings, err := b.store.ListReactionRoles(ctx, guildID, reaction.MessageID)
	if err != nil {
		b.logger.Warn("loading reaction roles", zap.Error(err))
		return
	}
	for _, binding := range bindings {
		if binding.Emoji != reaction.Emoji {
			continue
		}
		change := &event.RoleChange{UserID: reaction.UserID, RoleID: binding.RoleID}
		action := event.Action{Kind: event.ActionAddRole, GuildID: guildID, AddRole: change}
		if !added {
			action = event.Action{Kind: event.ActionRemoveRole, GuildID: guildID, RemoveRole: change}
		}
		if err := b.Dispatch(ctx, action); err != nil {
			b.logger.Warn("applying reaction role",
				zap.String("guild_id", guildID),
				zap.String("role_id", binding.RoleID),
				zap.Bool("added", added),
				zap.Error(err))
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
