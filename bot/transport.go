// Package bot is the transport-agnostic conversational core: role-routed
// menus, multi-step form flows and schedule rendering. The chat transport
// (a Telegram adapter, a test fake) feeds it Updates and renders the Replies
// it returns; the core never talks to the chat API directly.
package bot

// UpdateKind tells the dispatcher what produced an inbound event.
type UpdateKind int

const (
	// KindStart is the session-start entry point (/start and equivalents).
	KindStart UpdateKind = iota
	// KindText is a free-text message from the user.
	KindText
	// KindSelect is a tapped menu choice carrying its callback token.
	KindSelect
)

// Update is one inbound user event.
type Update struct {
	UserID int64
	ChatID int64
	Kind   UpdateKind
	Text   string // message text for KindText
	Data   string // callback token for KindSelect
}

// Button is one labeled choice offered with a reply.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Reply is one rendering-agnostic outbound message. Edit asks the transport
// to rewrite the message the menu lives in instead of sending a new one;
// DeleteMenu asks it to drop the triggering menu message.
type Reply struct {
	Text       string   `json:"text"`
	Buttons    []Button `json:"buttons,omitempty"`
	Edit       bool     `json:"edit,omitempty"`
	DeleteMenu bool     `json:"delete_menu,omitempty"`
}

// reply is the common case: a plain text message.
func reply(text string) Reply {
	return Reply{Text: text}
}

// editReply rewrites the menu message in place.
func editReply(text string) Reply {
	return Reply{Text: text, Edit: true}
}
