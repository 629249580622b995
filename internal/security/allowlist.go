package security

import (
	"strconv"
	"strings"
)

// AllowList decides which senders may use the bot. Entries are numeric user
// ids or usernames (with or without a leading "@"). An empty list allows
// everyone.
type AllowList struct {
	ids   map[int64]struct{}
	names map[string]struct{}
}

// NewAllowList normalizes entries: trims, lowercases usernames, drops blanks
// and duplicates.
func NewAllowList(entries []string) *AllowList {
	al := &AllowList{
		ids:   make(map[int64]struct{}),
		names: make(map[string]struct{}),
	}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if id, err := strconv.ParseInt(e, 10, 64); err == nil {
			al.ids[id] = struct{}{}
			continue
		}
		al.names[strings.ToLower(strings.TrimPrefix(e, "@"))] = struct{}{}
	}
	return al
}

// Empty reports whether no restriction is configured.
func (al *AllowList) Empty() bool {
	return al == nil || (len(al.ids) == 0 && len(al.names) == 0)
}

// Allows reports whether the sender may use the bot.
func (al *AllowList) Allows(userID int64, username string) bool {
	if al.Empty() {
		return true
	}
	if _, ok := al.ids[userID]; ok {
		return true
	}
	if username == "" {
		return false
	}
	_, ok := al.names[strings.ToLower(strings.TrimPrefix(username, "@"))]
	return ok
}
