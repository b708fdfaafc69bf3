package state

import "encoding/json"

// User is a gateway user record.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
	GlobalName    string `json:"global_name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	Bot           bool   `json:"bot,omitempty"`
}

// Role is a guild role, keyed by (guild id, role id).
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist,omitempty"`
	Position    int    `json:"position"`
	Permissions string `json:"permissions,omitempty"`
	Managed     bool   `json:"managed,omitempty"`
	Mentionable bool   `json:"mentionable,omitempty"`
}

// ChannelType discriminates guild channels from direct-message channels.
type ChannelType int

const (
	ChannelGuildText         ChannelType = 0
	ChannelDM                ChannelType = 1
	ChannelGuildVoice        ChannelType = 2
	ChannelGroupDM           ChannelType = 3
	ChannelGuildCategory     ChannelType = 4
	ChannelGuildAnnouncement ChannelType = 5
)

// IsDirect reports whether the type is a direct-message channel type.
// Direct channels live in the top-level DM collection, not under a guild.
func (ct ChannelType) IsDirect() bool {
	return ct == ChannelDM || ct == ChannelGroupDM
}

// Channel is a guild channel or a direct-message channel.
type Channel struct {
	ID            string      `json:"id"`
	GuildID       string      `json:"guild_id,omitempty"`
	Type          ChannelType `json:"type"`
	Name          string      `json:"name,omitempty"`
	Topic         string      `json:"topic,omitempty"`
	Position      int         `json:"position,omitempty"`
	ParentID      string      `json:"parent_id,omitempty"`
	LastMessageID string      `json:"last_message_id,omitempty"`
}

// Member is a guild member, keyed by (guild id, user id).
type Member struct {
	GuildID  string   `json:"guild_id,omitempty"`
	User     *User    `json:"user"`
	Nick     string   `json:"nick,omitempty"`
	Avatar   string   `json:"avatar,omitempty"`
	Roles    []string `json:"roles"`
	JoinedAt string   `json:"joined_at,omitempty"`
	Deaf     bool     `json:"deaf,omitempty"`
	Mute     bool     `json:"mute,omitempty"`
	Pending  bool     `json:"pending,omitempty"`
}

// Clone returns a shallow copy of the member. The nested User pointer
// and the Roles backing array are shared; merges always replace these
// wholesale, so a clone taken before a merge stays a valid snapshot.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

// MemberPatch is a partial member update. Nil fields were not present
// in the incoming event and must not overwrite cached values.
type MemberPatch struct {
	GuildID  string    `json:"guild_id"`
	User     *User     `json:"user,omitempty"`
	Nick     *string   `json:"nick,omitempty"`
	Avatar   *string   `json:"avatar,omitempty"`
	Roles    *[]string `json:"roles,omitempty"`
	JoinedAt *string   `json:"joined_at,omitempty"`
	Deaf     *bool     `json:"deaf,omitempty"`
	Mute     *bool     `json:"mute,omitempty"`
	Pending  *bool     `json:"pending,omitempty"`
}

// Message is a chat message as delivered by the gateway. The cache keeps
// only each channel's last-message pointer, not message bodies.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id,omitempty"`
	Author    *User  `json:"author,omitempty"`
	Content   string `json:"content,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Guild is a guild record with its keyed channel/member/role
// collections. Unavailable marks an outage: the guild still exists but
// its data is stale until the gateway re-delivers it.
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
	Icon        string `json:"icon,omitempty"`
	MemberCount int    `json:"member_count,omitempty"`
	Large       bool   `json:"large,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`

	Channels map[string]*Channel `json:"channels,omitempty"`
	Members  map[string]*Member  `json:"members,omitempty"`
	Roles    map[string]*Role    `json:"roles,omitempty"`
}

// guildWire is the guild shape on the wire, which carries collections
// as arrays rather than keyed maps.
type guildWire struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	OwnerID     string     `json:"owner_id"`
	Icon        string     `json:"icon"`
	MemberCount int        `json:"member_count"`
	Large       bool       `json:"large"`
	Unavailable bool       `json:"unavailable"`
	Channels    []*Channel `json:"channels"`
	Members     []*Member  `json:"members"`
	Roles       []*Role    `json:"roles"`
}

// UnmarshalJSON decodes the wire shape and indexes the collections by
// id. Duplicate ids in the wire arrays collapse to the last occurrence,
// keeping the keyed-collection invariant from the start.
func (g *Guild) UnmarshalJSON(data []byte) error {
	var w guildWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	g.ID = w.ID
	g.Name = w.Name
	g.OwnerID = w.OwnerID
	g.Icon = w.Icon
	g.MemberCount = w.MemberCount
	g.Large = w.Large
	g.Unavailable = w.Unavailable

	g.Channels = make(map[string]*Channel, len(w.Channels))
	for _, c := range w.Channels {
		if c == nil || c.ID == "" {
			continue
		}
		if c.GuildID == "" {
			c.GuildID = g.ID
		}
		g.Channels[c.ID] = c
	}

	g.Members = make(map[string]*Member, len(w.Members))
	for _, m := range w.Members {
		if m == nil || m.User == nil || m.User.ID == "" {
			continue
		}
		if m.GuildID == "" {
			m.GuildID = g.ID
		}
		g.Members[m.User.ID] = m
	}

	g.Roles = make(map[string]*Role, len(w.Roles))
	for _, r := range w.Roles {
		if r == nil || r.ID == "" {
			continue
		}
		g.Roles[r.ID] = r
	}

	return nil
}
