package event

import "time"

type ActionKind int

const (
	ActionSendMessage ActionKind = iota
	ActionDeleteMessage
	ActionAddRole
	ActionRemoveRole
	ActionTimeout
	ActionBan
	ActionKick
	ActionAddReaction
)

// Action is one outbound operation against the chat platform. Exactly one
// payload pointer matches Kind.
type Action struct {
	Kind    ActionKind
	GuildID string

	SendMessage   *SendMessage
	DeleteMessage *DeleteMessage
	AddRole       *RoleChange
	RemoveRole    *RoleChange
	Timeout       *Timeout
	Ban           *Ban
	Kick          *Kick
	AddReaction   *AddReaction
}

type SendMessage struct {
	ChannelID string
	Content   string
	// Embed fields; when Title is set the adapter sends an embed instead
	// of plain content.
	Title       string
	Description string
	Color       int
}

type DeleteMessage struct {
	ChannelID string
	MessageID string
}

type RoleChange struct {
	UserID string
	RoleID string
}

type Timeout struct {
	UserID string
	Until  time.Time
}

type Ban struct {
	UserID string
	Reason string
	// Days of message history to purge, 0-7.
	DeleteDays int
}

type Kick struct {
	UserID string
	Reason string
}

type AddReaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}
