package protocol

// Intents is the bitfield declaring which event groups the gateway
// should deliver to this session.
type Intents uint32

const (
	IntentGuilds                Intents = 1 << 0
	IntentGuildMembers          Intents = 1 << 1
	IntentGuildModeration       Intents = 1 << 2
	IntentGuildEmojis           Intents = 1 << 3
	IntentGuildIntegrations     Intents = 1 << 4
	IntentGuildWebhooks         Intents = 1 << 5
	IntentGuildInvites          Intents = 1 << 6
	IntentGuildVoiceStates      Intents = 1 << 7
	IntentGuildPresences        Intents = 1 << 8
	IntentGuildMessages         Intents = 1 << 9
	IntentGuildMessageReactions Intents = 1 << 10
	IntentGuildMessageTyping    Intents = 1 << 11
	IntentDirectMessages        Intents = 1 << 12
	IntentDirectReactions       Intents = 1 << 13
	IntentDirectTyping          Intents = 1 << 14
	IntentMessageContent        Intents = 1 << 15
	IntentGuildScheduledEvents  Intents = 1 << 16
)

// IntentsDefault covers the event set the state cache consumes:
// guild/channel/role lifecycle, member changes, and messages.
const IntentsDefault = IntentGuilds |
	IntentGuildMembers |
	IntentGuildMessages |
	IntentDirectMessages

// Has reports whether all bits of other are set.
func (i Intents) Has(other Intents) bool {
	return i&other == other
}
