package tagdb

import (
	"testing"
	"time"
)

func TestGetIdUser(t *testing.T) {
	l := newUserLedger()
	if got := l.getIdUserName(AnonymousUser); got != anonymousUserName {
		t.Fatalf("anonymous user name = %q", got)
	}

	id := l.getIdUser("alice", true)
	if id == AnonymousUser {
		t.Fatal("expected a non-anonymous id")
	}
	if got := l.getIdUserName(id); got != "alice" {
		t.Fatalf("getIdUserName = %q, want alice", got)
	}
}

func TestSelfNotifications(t *testing.T) {
	l := newUserLedger()
	alice := l.getIdUser("alice", true)
	now := time.Now()

	l.addChange(NotificationChange{IdUser: alice, IdTag: NewIdTag(0, 1, [3]uint8{})}, now)

	if _, ok := l.getChange(alice, false, true); ok {
		t.Fatal("expected self-write filtered out when includeMyChanges=false")
	}
	// The filtered read moved alice's cursor past that change; write again
	// (outside the debounce window) to check the unfiltered read.
	l.addChange(NotificationChange{IdUser: alice, IdTag: NewIdTag(0, 1, [3]uint8{})}, now.Add(2*time.Second))
	if _, ok := l.getChange(alice, true, true); !ok {
		t.Fatal("expected self-write visible when includeMyChanges=true")
	}
}

func TestAnonymousNotifications(t *testing.T) {
	l := newUserLedger()
	bob := l.getIdUser("bob", true)
	now := time.Now()

	l.addChange(NotificationChange{IdUser: AnonymousUser, IdTag: NewIdTag(0, 1, [3]uint8{})}, now)

	if _, ok := l.getChange(bob, true, false); ok {
		t.Fatal("expected anonymous write filtered out when includeAnonymousChanges=false")
	}
	// The filtered read moved bob's cursor past that change; write again
	// (outside the debounce window) to check the unfiltered read.
	l.addChange(NotificationChange{IdUser: AnonymousUser, IdTag: NewIdTag(0, 1, [3]uint8{})}, now.Add(2*time.Second))
	if _, ok := l.getChange(bob, true, true); !ok {
		t.Fatal("expected anonymous write visible when includeAnonymousChanges=true")
	}
}

func TestMultiUserNotifications(t *testing.T) {
	l := newUserLedger()
	alice := l.getIdUser("alice", true)
	bob := l.getIdUser("bob", true)
	now := time.Now()

	tag := NewIdTag(0, 1, [3]uint8{})
	l.addChange(NotificationChange{IdUser: alice, IdTag: tag}, now)

	change, ok := l.getChange(bob, true, true)
	if !ok || change.IdUser != alice || change.IdTag != tag {
		t.Fatalf("bob getChange = %+v, %v", change, ok)
	}
	if _, ok := l.getChange(bob, true, true); ok {
		t.Fatal("expected no further changes for bob")
	}
}

func TestUnknownUserGetChange(t *testing.T) {
	l := newUserLedger()
	if _, ok := l.getChange(IdUser(999), true, true); ok {
		t.Fatal("expected false for unknown user")
	}
}

func TestUserWithoutNotificationNeverSeesChanges(t *testing.T) {
	l := newUserLedger()
	carol := l.getIdUser("carol", false)
	alice := l.getIdUser("alice", true)
	now := time.Now()
	l.addChange(NotificationChange{IdUser: alice, IdTag: NewIdTag(0, 1, [3]uint8{})}, now)

	if _, ok := l.getChange(carol, true, true); ok {
		t.Fatal("expected false for a user not subscribed to notifications")
	}
}

func TestDebounceWithinWindow(t *testing.T) {
	l := newUserLedger()
	alice := l.getIdUser("alice", true)
	bob := l.getIdUser("bob", true)
	tag := NewIdTag(0, 1, [3]uint8{})

	base := time.Now()
	l.addChange(NotificationChange{IdUser: alice, IdTag: tag}, base)
	l.addChange(NotificationChange{IdUser: alice, IdTag: tag}, base.Add(500*time.Millisecond))

	count := 0
	for {
		if _, ok := l.getChange(bob, true, true); !ok {
			break
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 debounced change, got %d", count)
	}
}

func TestNoDebounceAcrossWindow(t *testing.T) {
	l := newUserLedger()
	alice := l.getIdUser("alice", true)
	bob := l.getIdUser("bob", true)
	tag := NewIdTag(0, 1, [3]uint8{})

	base := time.Now()
	l.addChange(NotificationChange{IdUser: alice, IdTag: tag}, base)
	l.addChange(NotificationChange{IdUser: alice, IdTag: tag}, base.Add(2*time.Second))

	count := 0
	for {
		if _, ok := l.getChange(bob, true, true); !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 changes past the debounce window, got %d", count)
	}
}

func TestPurgeChangesAdvancesAllCursors(t *testing.T) {
	l := newUserLedger()
	alice := l.getIdUser("alice", true)
	bob := l.getIdUser("bob", true)
	tagA := NewIdTag(0, 1, [3]uint8{})
	tagB := NewIdTag(0, 2, [3]uint8{})

	base := time.Now()
	l.addChange(NotificationChange{IdUser: alice, IdTag: tagA}, base)
	l.addChange(NotificationChange{IdUser: alice, IdTag: tagB}, base.Add(2*time.Second))

	// Both subscribers drain both changes. Reading alone purges nothing:
	// purgeChanges only runs on the next append.
	for _, u := range []IdUser{alice, bob} {
		for {
			if _, ok := l.getChange(u, true, true); !ok {
				break
			}
		}
	}
	if len(l.vecChanges) != 2 {
		t.Fatalf("expected the drained log kept until the next append, got %d entries", len(l.vecChanges))
	}

	l.addChange(NotificationChange{IdUser: alice, IdTag: tagA}, base.Add(4*time.Second))
	if len(l.vecChanges) != 1 {
		t.Fatalf("expected 1 entry after purge+append, got %d", len(l.vecChanges))
	}
}

func TestMultiUserPurgeChangesWaitsForSlowestReader(t *testing.T) {
	l := newUserLedger()
	alice := l.getIdUser("alice", true)
	bob := l.getIdUser("bob", true)
	tag := NewIdTag(0, 1, [3]uint8{})

	base := time.Now()
	l.addChange(NotificationChange{IdUser: alice, IdTag: tag}, base.Add(2*time.Second))

	// Only bob drains. purgeChanges only runs from addChange, using
	// whatever cursors exist at that moment, so a purge attempt between
	// these two writes sees alice's cursor still at 0 and does nothing.
	for {
		if _, ok := l.getChange(bob, true, true); !ok {
			break
		}
	}
	l.addChange(NotificationChange{IdUser: bob, IdTag: tag}, base.Add(4*time.Second))
	if len(l.vecChanges) != 2 {
		t.Fatalf("expected no purge while alice's cursor still lags, got %d entries", len(l.vecChanges))
	}

	// Once both subscribers have drained everything, the next write
	// purges the log down to just that new entry.
	for _, u := range []IdUser{alice, bob} {
		for {
			if _, ok := l.getChange(u, true, true); !ok {
				break
			}
		}
	}
	l.addChange(NotificationChange{IdUser: alice, IdTag: tag}, base.Add(6*time.Second))
	if len(l.vecChanges) != 1 {
		t.Fatalf("expected the log purged down to the latest write, got %d entries", len(l.vecChanges))
	}
}
