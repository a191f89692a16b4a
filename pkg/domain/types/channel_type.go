package types

// ChannelType is the Mattermost channel type code
type ChannelType string

const (
	// ChannelTypeOpen is a public channel
	ChannelTypeOpen ChannelType = "O"
	// ChannelTypePrivate is a private channel
	ChannelTypePrivate ChannelType = "P"
	// ChannelTypeGroup is a multi-party group message
	ChannelTypeGroup ChannelType = "G"
	// ChannelTypeDirect is a one-on-one direct message
	ChannelTypeDirect ChannelType = "D"
)

// IsMultiParty reports whether the channel is a group conversation.
// One-on-one direct messages are excluded from summarization.
func (x ChannelType) IsMultiParty() bool {
	switch x {
	case ChannelTypeOpen, ChannelTypePrivate, ChannelTypeGroup:
		return true
	default:
		return false
	}
}
