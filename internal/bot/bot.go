package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/Joulessies/hansel-bot/internal/automod"
	"github.com/Joulessies/hansel-bot/internal/config"
	"github.com/Joulessies/hansel-bot/internal/event"
	"github.com/Joulessies/hansel-bot/internal/leveling"
	"github.com/Joulessies/hansel-bot/internal/storage"
)

const (
	colorInfo    = 0x5865f2
	colorSuccess = 0x57f287
	colorWarning = 0xfee75c
	colorError   = 0xed4245
)

// commandPrefix triggers custom text commands, e.g. "!hello".
const commandPrefix = "!"

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	evaluator *automod.Evaluator
	levels    *leveling.Engine
	session   *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, evaluator *automod.Evaluator, levels *leveling.Engine) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	session.Client.Timeout = 20 * time.Second

	return &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		evaluator: evaluator,
		levels:    levels,
		session:   session,
	}, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onGuildBanAdd)
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

func (b *Bot) onReady(session *discordgo.Session, ready *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(ready.Guilds)))
}

// Dispatch executes one outbound action against the gateway. The scheduler
// and the handlers both go through here so every platform call lives in one
// place.
func (b *Bot) Dispatch(ctx context.Context, action event.Action) error {
	_ = ctx
	switch action.Kind {
	case event.ActionSendMessage:
		p := action.SendMessage
		if p.Title != "" {
			_, err := b.session.ChannelMessageSendEmbed(p.ChannelID, &discordgo.MessageEmbed{
				Title:       p.Title,
				Description: p.Description,
				Color:       p.Color,
				Timestamp:   time.Now().Format(time.RFC3339),
			})
			return err
		}
		_, err := b.session.ChannelMessageSend(p.ChannelID, p.Content)
		return err
	case event.ActionDeleteMessage:
		p := action.DeleteMessage
		return b.session.ChannelMessageDelete(p.ChannelID, p.MessageID)
	case event.ActionAddRole:
		p := action.AddRole
		return b.session.GuildMemberRoleAdd(action.GuildID, p.UserID, p.RoleID)
	case event.ActionRemoveRole:
		p := action.RemoveRole
		return b.session.GuildMemberRoleRemove(action.GuildID, p.UserID, p.RoleID)
	case event.ActionTimeout:
		p := action.Timeout
		until := p.Until
		return b.session.GuildMemberTimeout(action.GuildID, p.UserID, &until)
	case event.ActionBan:
		p := action.Ban
		return b.session.GuildBanCreateWithReason(action.GuildID, p.UserID, p.Reason, p.DeleteDays)
	case event.ActionKick:
		p := action.Kick
		return b.session.GuildMemberDeleteWithReason(action.GuildID, p.UserID, p.Reason)
	case event.ActionAddReaction:
		p := action.AddReaction
		return b.session.MessageReactionAdd(p.ChannelID, p.MessageID, p.Emoji)
	default:
		return fmt.Errorf("bot: unknown action kind %d", action.Kind)
	}
}

// resolveAuditActor finds who performed a recent audit-logged action against
// targetID, used to tell kicks apart from ordinary leaves.
func (b *Bot) resolveAuditActor(guildID string, actionType discordgo.AuditLogAction, targetID string) string {
	logs, err := b.session.GuildAuditLog(guildID, "", "", int(actionType), 5)
	if err != nil || logs == nil {
		return ""
	}
	for _, entry := range logs.AuditLogEntries {
		if entry == nil {
			continue
		}
		if targetID != "" && entry.TargetID != targetID {
			continue
		}
		ts, err := discordgo.SnowflakeTimestamp(entry.ID)
		if err == nil && time.Since(ts) > 30*time.Second {
			continue
		}
		return entry.UserID
	}
	return ""
}

func (b *Bot) sendToLogChannel(ctx context.Context, guildID string, embed *discordgo.MessageEmbed) {
	settings, err := b.store.GetServerSettings(ctx, guildID)
	if err != nil {
		b.logger.Warn("loading settings for log channel", zap.Error(err))
		return
	}
	if settings.LogChannelID == nil {
		return
	}
	_, _ = b.session.ChannelMessageSendEmbed(*settings.LogChannelID, embed)
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
