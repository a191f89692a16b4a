package mattermost

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

// FetchMessages collects the posts created after the channel's last-viewed
// time, or after the marker's last summarized post when that is newer. When
// a threshold exists the server-side since filter does the cut; otherwise
// the channel history is paged newest-first until the unread count is
// covered. Posts come back in ascending creation order with author names
// resolved.
func (c *client) FetchMessages(ctx context.Context, channel *model.Channel, marker *model.Marker) ([]*model.Post, error) {
	threshold := channel.LastViewedAt
	if marker != nil && marker.LastPostAt.After(threshold) {
		threshold = marker.LastPostAt
	}

	var posts []apiPost
	var err error
	if !threshold.IsZero() {
		posts, err = c.fetchSince(ctx, channel.ID, threshold.UnixMilli())
	} else {
		posts, err = c.fetchPages(ctx, channel.ID, channel.UnreadCount)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch channel posts",
			goerr.V(types.ChannelIDKey, channel.ID),
			goerr.V(types.ChannelNameKey, channel.Name))
	}

	result := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		if !threshold.IsZero() && millisToTime(p.CreateAt).Compare(threshold) <= 0 {
			continue
		}
		// Join/leave notices and other system posts carry a type prefix
		if p.Type != "" {
			continue
		}
		if strings.TrimSpace(p.Message) == "" {
			continue
		}

		author, err := c.resolveAuthor(ctx, types.UserID(p.UserID))
		if err != nil {
			logging.From(ctx).Warn("failed to resolve post author, using raw ID",
				"user_id", p.UserID, "error", err)
			author = p.UserID
		}

		result = append(result, &model.Post{
			ID:         types.PostID(p.ID),
			ChannelID:  types.ChannelID(p.ChannelID),
			UserID:     types.UserID(p.UserID),
			AuthorName: author,
			Message:    p.Message,
			CreateAt:   millisToTime(p.CreateAt),
		})
	}

	logging.From(ctx).Debug("fetched channel posts",
		"channel", channel.Name, "raw", len(posts), "kept", len(result))
	return result, nil
}

// fetchSince pulls every post created at or after sinceMillis in one call.
// The since filter is inclusive at millisecond granularity, so the caller
// re-filters by the exact threshold.
func (c *client) fetchSince(ctx context.Context, channelID types.ChannelID, sinceMillis int64) ([]apiPost, error) {
	query := url.Values{"since": {strconv.FormatInt(sinceMillis, 10)}}
	var list apiPostList
	path := fmt.Sprintf("/channels/%s/posts", channelID)
	if err := c.do(ctx, "GET", path, query, nil, &list); err != nil {
		return nil, err
	}
	return orderedPosts(&list), nil
}

// fetchPages walks the channel history newest-first until at least want posts
// are collected or the history ends, then returns them oldest-first.
func (c *client) fetchPages(ctx context.Context, channelID types.ChannelID, want int) ([]apiPost, error) {
	if want <= 0 {
		want = c.pageSize
	}

	var collected []apiPost
	path := fmt.Sprintf("/channels/%s/posts", channelID)
	for page := 0; len(collected) < want; page++ {
		query := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(c.pageSize)},
		}
		var list apiPostList
		if err := c.do(ctx, "GET", path, query, nil, &list); err != nil {
			return nil, err
		}
		batch := orderedPosts(&list)
		if len(batch) == 0 {
			break
		}
		// Each page is older than the last, so it goes in front
		collected = append(batch, collected...)
		if len(list.Order) < c.pageSize {
			break
		}
	}

	if len(collected) > want {
		collected = collected[len(collected)-want:]
	}
	return collected, nil
}

// orderedPosts flattens a post list into ascending creation order. The API
// returns Order newest-first alongside a map of posts by ID.
func orderedPosts(list *apiPostList) []apiPost {
	posts := make([]apiPost, 0, len(list.Order))
	for i := len(list.Order) - 1; i >= 0; i-- {
		if p, ok := list.Posts[list.Order[i]]; ok {
			posts = append(posts, p)
		}
	}
	return posts
}

// resolveAuthor returns the display name for a user, fetching and caching it
// on first sight. The poller sees the same handful of authors every cycle,
// so the cache keeps user lookups to one call per author.
func (c *client) resolveAuthor(ctx context.Context, userID types.UserID) (string, error) {
	c.mu.RLock()
	name, ok := c.userCache[userID]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	var user apiUser
	if err := c.do(ctx, "GET", "/users/"+string(userID), nil, nil, &user); err != nil {
		return "", err
	}

	u := model.User{
		ID:        userID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	name = u.DisplayName()

	c.mu.Lock()
	c.userCache[userID] = name
	c.mu.Unlock()
	return name, nil
}
