// Package state maintains the local cache of remote gateway state:
// guilds with their channel/member/role collections, direct-message
// channels, and the session's own user. The cache is rebuilt from the
// READY snapshot and kept consistent by incremental dispatch events.
//
// All collections are keyed maps with replace semantics: inserting an
// existing key overwrites the prior entry, so no collection ever holds
// duplicate ids. The cache guards itself with a single RWMutex; every
// access goes through a method.
package state

import "sync"

// Cache is the authoritative local copy of gateway-delivered state for
// one session. It is only meaningful while the owning session is live;
// Clear empties it on teardown so stale entries are never exposed.
type Cache struct {
	mu     sync.RWMutex
	self   *User
	guilds map[string]*Guild
	dms    map[string]*Channel
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		guilds: make(map[string]*Guild),
		dms:    make(map[string]*Channel),
	}
}

// SetReady replaces the entire cache with the READY snapshot: the
// session's own user and the guild list (usually unavailable stubs that
// later GUILD_CREATE events fill in).
func (c *Cache) SetReady(self *User, guilds []*Guild) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.self = self
	c.guilds = make(map[string]*Guild, len(guilds))
	for _, g := range guilds {
		if g == nil || g.ID == "" {
			continue
		}
		ensureCollections(g)
		c.guilds[g.ID] = g
	}
	c.dms = make(map[string]*Channel)
}

// Clear empties the cache. Called on session teardown.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.self = nil
	c.guilds = make(map[string]*Guild)
	c.dms = make(map[string]*Channel)
}

// SelfUser returns the session's own user, or nil before READY.
func (c *Cache) SelfUser() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self
}

// Guild returns the cached guild with the given id.
func (c *Cache) Guild(id string) (*Guild, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.guilds[id]
	return g, ok
}

// Guilds returns all cached guilds in unspecified order.
func (c *Cache) Guilds() []*Guild {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Guild, 0, len(c.guilds))
	for _, g := range c.guilds {
		out = append(out, g)
	}
	return out
}

// UpsertGuild inserts the guild, replacing any prior entry with the
// same id wholesale. Returns the replaced entry, if any. A guild that
// was cached unavailable and arrives available is replaced completely,
// never merged: its stale collections are dropped with it.
func (c *Cache) UpsertGuild(g *Guild) (prior *Guild) {
	if g == nil || g.ID == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ensureCollections(g)
	prior = c.guilds[g.ID]
	c.guilds[g.ID] = g
	return prior
}

// MergeGuild overlays updated scalar fields onto an existing guild,
// preserving its channel/member/role collections. Returns a snapshot of
// the guild before the merge.
func (c *Cache) MergeGuild(g *Guild) (prior *Guild, ok bool) {
	if g == nil || g.ID == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.guilds[g.ID]
	if !ok {
		return nil, false
	}
	snapshot := *cur
	cur.Name = g.Name
	cur.OwnerID = g.OwnerID
	cur.Icon = g.Icon
	if g.MemberCount > 0 {
		cur.MemberCount = g.MemberCount
	}
	cur.Large = g.Large
	cur.Unavailable = false
	return &snapshot, true
}

// RemoveGuild handles guild removal. With outage set the guild stays
// cached but flagged unavailable; otherwise it is deleted entirely.
// Returns the affected guild.
func (c *Cache) RemoveGuild(id string, outage bool) (*Guild, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.guilds[id]
	if !ok {
		return nil, false
	}
	if outage {
		g.Unavailable = true
		return g, true
	}
	delete(c.guilds, id)
	return g, true
}

// GuildCount returns the number of cached guilds.
func (c *Cache) GuildCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.guilds)
}

// UpsertChannel stores a channel in its owning collection: the DM map
// for direct channel types, otherwise the owning guild's channel map.
// Returns the replaced entry and whether a home for the channel existed.
func (c *Cache) UpsertChannel(ch *Channel) (prior *Channel, ok bool) {
	if ch == nil || ch.ID == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch.Type.IsDirect() {
		prior = c.dms[ch.ID]
		c.dms[ch.ID] = ch
		return prior, true
	}
	g, found := c.guilds[ch.GuildID]
	if !found {
		return nil, false
	}
	prior = g.Channels[ch.ID]
	g.Channels[ch.ID] = ch
	return prior, true
}

// RemoveChannel deletes a channel from its owning collection.
func (c *Cache) RemoveChannel(ch *Channel) (*Channel, bool) {
	if ch == nil || ch.ID == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch.Type.IsDirect() {
		prior, ok := c.dms[ch.ID]
		delete(c.dms, ch.ID)
		return prior, ok
	}
	g, found := c.guilds[ch.GuildID]
	if !found {
		return nil, false
	}
	prior, ok := g.Channels[ch.ID]
	delete(g.Channels, ch.ID)
	return prior, ok
}

// Channel looks a channel up by id across DM and guild collections.
func (c *Cache) Channel(id string) (*Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ch, ok := c.dms[id]; ok {
		return ch, true
	}
	for _, g := range c.guilds {
		if ch, ok := g.Channels[id]; ok {
			return ch, true
		}
	}
	return nil, false
}

// DM returns the direct-message channel with the given id.
func (c *Cache) DM(id string) (*Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.dms[id]
	return ch, ok
}

// SetLastMessage updates the last-message pointer of the channel the
// message landed in.
func (c *Cache) SetLastMessage(channelID, messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.dms[channelID]; ok {
		ch.LastMessageID = messageID
		return true
	}
	for _, g := range c.guilds {
		if ch, ok := g.Channels[channelID]; ok {
			ch.LastMessageID = messageID
			return true
		}
	}
	return false
}

// UpsertMember stores a member in its guild's collection, keyed by the
// nested user id.
func (c *Cache) UpsertMember(m *Member) (prior *Member, ok bool) {
	if m == nil || m.User == nil || m.User.ID == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	g, found := c.guilds[m.GuildID]
	if !found {
		return nil, false
	}
	prior = g.Members[m.User.ID]
	g.Members[m.User.ID] = m
	return prior, true
}

// RemoveMember deletes a member from its guild's collection.
func (c *Cache) RemoveMember(guildID, userID string) (*Member, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, found := c.guilds[guildID]
	if !found {
		return nil, false
	}
	m, ok := g.Members[userID]
	delete(g.Members, userID)
	return m, ok
}

// Member returns a guild member by (guild id, user id).
func (c *Cache) Member(guildID, userID string) (*Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, found := c.guilds[guildID]
	if !found {
		return nil, false
	}
	m, ok := g.Members[userID]
	return m, ok
}

// PatchMember applies a partial member update: only fields present in
// the patch overwrite cached values. Returns a shallow snapshot of the
// member before the patch and the member afterwards. An unknown member
// is inserted from the patch contents when it names a user, with a nil
// prior.
func (c *Cache) PatchMember(p *MemberPatch) (prior, updated *Member, ok bool) {
	if p == nil || p.User == nil || p.User.ID == "" {
		return nil, nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	g, found := c.guilds[p.GuildID]
	if !found {
		return nil, nil, false
	}

	m, exists := g.Members[p.User.ID]
	if exists {
		prior = m.Clone()
	} else {
		m = &Member{GuildID: p.GuildID, User: p.User}
		g.Members[p.User.ID] = m
	}

	m.User = p.User
	if p.Nick != nil {
		m.Nick = *p.Nick
	}
	if p.Avatar != nil {
		m.Avatar = *p.Avatar
	}
	if p.Roles != nil {
		m.Roles = *p.Roles
	}
	if p.JoinedAt != nil {
		m.JoinedAt = *p.JoinedAt
	}
	if p.Deaf != nil {
		m.Deaf = *p.Deaf
	}
	if p.Mute != nil {
		m.Mute = *p.Mute
	}
	if p.Pending != nil {
		m.Pending = *p.Pending
	}
	return prior, m, true
}

// PropagateUser pushes an updated user object into every member record
// referencing that user id, plus the session's own user when it
// matches. Returns how many records were touched.
func (c *Cache) PropagateUser(u *User) int {
	if u == nil || u.ID == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	touched := 0
	if c.self != nil && c.self.ID == u.ID {
		c.self = u
		touched++
	}
	for _, g := range c.guilds {
		if m, ok := g.Members[u.ID]; ok {
			m.User = u
			touched++
		}
	}
	return touched
}

// UpsertRole stores a role in its guild's collection.
func (c *Cache) UpsertRole(guildID string, r *Role) (prior *Role, ok bool) {
	if r == nil || r.ID == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	g, found := c.guilds[guildID]
	if !found {
		return nil, false
	}
	prior = g.Roles[r.ID]
	g.Roles[r.ID] = r
	return prior, true
}

// RemoveRole deletes a role from its guild's collection.
func (c *Cache) RemoveRole(guildID, roleID string) (*Role, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, found := c.guilds[guildID]
	if !found {
		return nil, false
	}
	r, ok := g.Roles[roleID]
	delete(g.Roles, roleID)
	return r, ok
}

// Stats is a point-in-time census of the cache.
type Stats struct {
	Guilds            int `json:"guilds"`
	UnavailableGuilds int `json:"unavailable_guilds"`
	Channels          int `json:"channels"`
	DMChannels        int `json:"dm_channels"`
	Members           int `json:"members"`
	Roles             int `json:"roles"`
}

// Stats counts cached entities.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Guilds: len(c.guilds), DMChannels: len(c.dms)}
	for _, g := range c.guilds {
		if g.Unavailable {
			s.UnavailableGuilds++
		}
		s.Channels += len(g.Channels)
		s.Members += len(g.Members)
		s.Roles += len(g.Roles)
	}
	s.Channels += len(c.dms)
	return s
}

// ensureCollections initializes nil collection maps so callers can
// index into a guild without nil checks.
func ensureCollections(g *Guild) {
	if g.Channels == nil {
		g.Channels = make(map[string]*Channel)
	}
	if g.Members == nil {
		g.Members = make(map[string]*Member)
	}
	if g.Roles == nil {
		g.Roles = make(map[string]*Role)
	}
}
