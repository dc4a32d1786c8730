package pubsub

// ChannelKind is the capability set of a channel, fixed by its name prefix.
type ChannelKind int

const (
	Public ChannelKind = iota
	// Private channels need an authorization handshake before subscribing.
	Private
	// Presence channels are Private channels that also track members.
	Presence
)

func (k ChannelKind) String() string {
	switch k {
	case Public:
		return "public"
	case Private:
		return "private"
	case Presence:
		return "presence"
	default:
		return "unknown"
	}
}

func (k ChannelKind) private() bool {
	return k == Private || k == Presence
}

func (k ChannelKind) presence() bool {
	return k == Presence
}
