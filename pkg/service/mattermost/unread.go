package mattermost

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

// ListUnreadChannels walks every team the user belongs to and returns the
// channels with unread activity. A channel counts as unread when its member
// record shows fewer consumed messages than the channel holds, or carries
// unseen mentions, and the channel received a post after the user's last
// view. Direct message channels are excluded.
func (c *client) ListUnreadChannels(ctx context.Context) ([]*model.Channel, error) {
	var teams []apiTeam
	if err := c.do(ctx, "GET", "/users/me/teams", nil, nil, &teams); err != nil {
		return nil, goerr.Wrap(err, "failed to list teams")
	}

	var unread []*model.Channel
	for _, team := range teams {
		channels, err := c.teamUnreadChannels(ctx, team)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list unread channels",
				goerr.V("team_id", team.ID), goerr.V("team_name", team.Name))
		}
		unread = append(unread, channels...)
	}

	sort.Slice(unread, func(i, j int) bool {
		return unread[i].LastPostAt.Before(unread[j].LastPostAt)
	})

	logging.From(ctx).Debug("listed unread channels", "teams", len(teams), "unread", len(unread))
	return unread, nil
}

func (c *client) teamUnreadChannels(ctx context.Context, team apiTeam) ([]*model.Channel, error) {
	var channels []apiChannel
	path := fmt.Sprintf("/users/me/teams/%s/channels", team.ID)
	if err := c.do(ctx, "GET", path, nil, nil, &channels); err != nil {
		return nil, err
	}

	var members []apiChannelMember
	path = fmt.Sprintf("/users/me/teams/%s/channels/members", team.ID)
	if err := c.do(ctx, "GET", path, nil, nil, &members); err != nil {
		return nil, err
	}

	memberByChannel := make(map[string]apiChannelMember, len(members))
	for _, m := range members {
		memberByChannel[m.ChannelID] = m
	}

	var unread []*model.Channel
	for _, ch := range channels {
		member, ok := memberByChannel[ch.ID]
		if !ok {
			continue
		}
		if !types.ChannelType(ch.Type).IsMultiParty() {
			continue
		}

		unreadCount := int(ch.TotalMsgCount - member.MsgCount)
		if unreadCount <= 0 && member.MentionCount <= 0 {
			continue
		}
		if ch.LastPostAt <= member.LastViewedAt {
			continue
		}

		unread = append(unread, &model.Channel{
			ID:           types.ChannelID(ch.ID),
			TeamID:       types.TeamID(ch.TeamID),
			Name:         ch.Name,
			DisplayName:  ch.DisplayName,
			Type:         types.ChannelType(ch.Type),
			LastViewedAt: millisToTime(member.LastViewedAt),
			LastPostAt:   millisToTime(ch.LastPostAt),
			UnreadCount:  unreadCount,
		})
	}

	return unread, nil
}

// millisToTime converts a Mattermost millisecond timestamp. Zero maps to the
// zero time, not the epoch.
func millisToTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
