package types

// TeamID represents a Mattermost team identifier
type TeamID string

// ChannelID represents a Mattermost channel identifier
type ChannelID string

// UserID represents a Mattermost user identifier
type UserID string

// PostID represents a Mattermost post identifier
type PostID string

// SummaryID represents a unique identifier of a generated summary
type SummaryID string

func (x TeamID) String() string    { return string(x) }
func (x ChannelID) String() string { return string(x) }
func (x UserID) String() string    { return string(x) }
func (x PostID) String() string    { return string(x) }
func (x SummaryID) String() string { return string(x) }
