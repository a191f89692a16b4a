package mattermost

// Wire representations of the Mattermost REST API v4 payloads used by the
// client. Timestamps are milliseconds since epoch.

type apiTeam struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type apiChannel struct {
	ID            string `json:"id"`
	TeamID        string `json:"team_id"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	LastPostAt    int64  `json:"last_post_at"`
	TotalMsgCount int64  `json:"total_msg_count"`
}

type apiChannelMember struct {
	ChannelID    string `json:"channel_id"`
	UserID       string `json:"user_id"`
	MsgCount     int64  `json:"msg_count"`
	MentionCount int64  `json:"mention_count"`
	LastViewedAt int64  `json:"last_viewed_at"`
}

type apiPost struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	CreateAt  int64  `json:"create_at"`
}

// apiPostList is the channel posts response: order holds post IDs newest
// first, posts maps ID to payload
type apiPostList struct {
	Order []string           `json:"order"`
	Posts map[string]apiPost `json:"posts"`
}

type apiUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type apiChannelView struct {
	ChannelID string `json:"channel_id"`
}

type apiLoginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}
