// Package event defines the normalized gateway events and the outbound
// actions the bot can take. Both are closed tagged variants: a Kind plus
// exactly one populated payload pointer, so handlers can switch without
// type assertions.
package event

type Kind int

const (
	KindMessageCreate Kind = iota
	KindMessageEdit
	KindMessageDelete
	KindMemberJoin
	KindMemberRemove
	KindMemberBan
	KindReactionAdd
	KindReactionRemove
)

type Event struct {
	Kind    Kind
	GuildID string

	MessageCreate  *Message
	MessageEdit    *MessageEdit
	MessageDelete  *MessageDelete
	MemberJoin     *Member
	MemberRemove   *Member
	MemberBan      *Member
	ReactionAdd    *Reaction
	ReactionRemove *Reaction
}

type Message struct {
	MessageID      string
	ChannelID      string
	AuthorID       string
	AuthorBot      bool
	Content        string
	AuthorRoles    []string
	MentionedUsers []string
	MentionedRoles []string
}

type MessageEdit struct {
	MessageID      string
	ChannelID      string
	AuthorID       string
	NewContent     string
	AuthorRoles    []string
	MentionedUsers []string
	MentionedRoles []string
}

type MessageDelete struct {
	MessageID string
	ChannelID string
}

type Member struct {
	UserID   string
	Username string
}

type Reaction struct {
	MessageID string
	ChannelID string
	UserID    string
	Emoji     string
}
