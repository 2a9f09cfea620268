package tagdb

import "time"

// IdUser identifies a registered consumer of the database — the AFSEC
// dispatcher, a MODBUS/TCP client, an operator session. Never zero except
// for the reserved anonymous user.
type IdUser int

// AnonymousUser is the reserved id for callers that never registered and
// never receive notifications.
const AnonymousUser IdUser = 0

const anonymousUserName = "Anonymous user"

// changeDebounceWindow is the minimum wall-clock gap required between two
// otherwise-identical consecutive changes for both to be recorded.
const changeDebounceWindow = 1 * time.Second

// User is one registered consumer's notification subscription state.
type User struct {
	Name                  string
	UseNotification       bool
	NextNotificationIndex int
}

// NotificationChange records that id_user wrote id_tag.
type NotificationChange struct {
	IdUser IdUser
	IdTag  IdTag
}

// userLedger is the per-user change log: an ordered list of users plus an
// append-only, periodically-purged log of changes, with a per-user read
// cursor into that log. It shares the Database's single mutex rather than
// locking independently.
type userLedger struct {
	vecUsers       []User
	vecChanges     []NotificationChange
	dateLastChange time.Time
}

func newUserLedger() *userLedger {
	return &userLedger{
		vecUsers: []User{{Name: anonymousUserName, UseNotification: false, NextNotificationIndex: 0}},
	}
}

// getIdUser registers a new user and returns its id; every call, the empty
// name included, gets a fresh non-zero id. A new user's read cursor starts at the
// current length of the change log — a freshly registered user never
// sees history that predates it.
func (l *userLedger) getIdUser(name string, useNotification bool) IdUser {
	id := IdUser(len(l.vecUsers))
	l.vecUsers = append(l.vecUsers, User{
		Name:                  name,
		UseNotification:       useNotification,
		NextNotificationIndex: len(l.vecChanges),
	})
	return id
}

// getIdUserName returns the registered name for id, or "" if unknown.
func (l *userLedger) getIdUserName(id IdUser) string {
	if int(id) < 0 || int(id) >= len(l.vecUsers) {
		return ""
	}
	return l.vecUsers[id].Name
}

func (l *userLedger) isSomeUserUsingNotification() bool {
	for _, u := range l.vecUsers {
		if u.UseNotification {
			return true
		}
	}
	return false
}

func (l *userLedger) isSameAsLastChange(change NotificationChange, now time.Time) bool {
	if len(l.vecChanges) == 0 {
		return false
	}
	last := l.vecChanges[len(l.vecChanges)-1]
	if last.IdUser != change.IdUser || last.IdTag != change.IdTag {
		return false
	}
	return now.Sub(l.dateLastChange) < changeDebounceWindow
}

// addChange appends change unless it's a debounced repeat of the last
// entry, or unless no subscriber currently wants notifications at all. It
// reports whether the change was appended, and separately whether it was
// dropped specifically by the debounce window (as opposed to having no
// notification-enabled subscriber at all).
func (l *userLedger) addChange(change NotificationChange, now time.Time) (appended, debounced bool) {
	if l.isSameAsLastChange(change, now) {
		return false, true
	}
	if !l.isSomeUserUsingNotification() {
		return false, false
	}
	l.vecChanges = append(l.vecChanges, change)
	l.dateLastChange = now
	l.purgeChanges()
	return true, false
}

// purgeChanges drops the prefix of vecChanges that every notification-
// enabled user has already advanced past, decrementing every cursor by
// the same amount.
func (l *userLedger) purgeChanges() {
	minIndex := -1
	for _, u := range l.vecUsers {
		if !u.UseNotification {
			continue
		}
		if minIndex == -1 || u.NextNotificationIndex < minIndex {
			minIndex = u.NextNotificationIndex
		}
	}
	if minIndex > 0 {
		l.doPurgeChanges(minIndex)
	}
}

func (l *userLedger) doPurgeChanges(nb int) {
	if nb > len(l.vecChanges) {
		nb = len(l.vecChanges)
	}
	l.vecChanges = append([]NotificationChange{}, l.vecChanges[nb:]...)
	for i := range l.vecUsers {
		l.vecUsers[i].NextNotificationIndex -= nb
		if l.vecUsers[i].NextNotificationIndex < 0 {
			l.vecUsers[i].NextNotificationIndex = 0
		}
	}
}

// getChange returns the next unseen change for idUser that passes the
// self/anonymous filters, advancing idUser's cursor past it (and past any
// filtered-out entries scanned along the way). An unknown user id, or one
// with notifications disabled, always returns ok=false.
func (l *userLedger) getChange(idUser IdUser, includeMyChanges, includeAnonymousChanges bool) (NotificationChange, bool) {
	if int(idUser) < 0 || int(idUser) >= len(l.vecUsers) {
		return NotificationChange{}, false
	}
	if !l.vecUsers[idUser].UseNotification {
		return NotificationChange{}, false
	}

	cursor := l.vecUsers[idUser].NextNotificationIndex
	for offset := cursor; offset < len(l.vecChanges); offset++ {
		change := l.vecChanges[offset]
		if !includeMyChanges && change.IdUser == idUser {
			continue
		}
		if !includeAnonymousChanges && change.IdUser == AnonymousUser {
			continue
		}
		l.vecUsers[idUser].NextNotificationIndex = offset + 1
		return change, true
	}
	l.vecUsers[idUser].NextNotificationIndex = len(l.vecChanges)
	return NotificationChange{}, false
}
