package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/chat"
)

func fixedClock() func() time.Time {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var n int
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func appendN(t *testing.T, s *Store, roomName string, n int) []chat.Message {
	t.Helper()
	var out []chat.Message
	require.NoError(t, s.Update(func(tx *Txn) error {
		for i := 0; i < n; i++ {
			out = append(out, tx.AppendMessage(fmt.Sprintf("msg %d", i), "alice", roomName, ""))
		}
		return nil
	}))
	return out
}

func list(s *Store, roomName string, limit int) []chat.Message {
	var out []chat.Message
	_ = s.View(func(tx *Txn) error {
		out = tx.ListMessages(roomName, limit)
		return nil
	})
	return out
}

func TestStore_AppendMessage_AssignsIncreasingIDs(t *testing.T) {
	req := require.New(t)
	s := New(WithClock(fixedClock()))

	a := appendN(t, s, "general", 2)
	b := appendN(t, s, "random", 2)

	all := append(a, b...)
	for i := 1; i < len(all); i++ {
		req.Greater(all[i].ID, all[i-1].ID)
		req.True(all[i].CreatedAt.After(all[i-1].CreatedAt))
	}
	req.Equal(int64(1), all[0].ID)
	req.Equal("random", all[3].Room)
	req.Empty(all[0].SessionID)
}

func TestStore_ListMessages(t *testing.T) {
	s := New()
	require.NoError(t, s.Update(func(tx *Txn) error {
		for i := 0; i < 6; i++ {
			roomName := "general"
			if i%2 == 1 {
				roomName = "random"
			}
			tx.AppendMessage(fmt.Sprintf("m%d", i), "bob", roomName, "")
		}
		return nil
	}))

	tests := []struct {
		name  string
		room  string
		limit int
		want  []int64
	}{
		{name: "all rooms within limit", room: "", limit: 3, want: []int64{4, 5, 6}},
		{name: "all rooms above total", room: "", limit: 50, want: []int64{1, 2, 3, 4, 5, 6}},
		{name: "room filter tail", room: "general", limit: 2, want: []int64{3, 5}},
		{name: "room filter everything", room: "random", limit: 10, want: []int64{2, 4, 6}},
		{name: "unknown room", room: "nope", limit: 10, want: []int64{}},
		{name: "zero limit", room: "", limit: 0, want: []int64{}},
		{name: "negative limit", room: "general", limit: -3, want: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := list(s, tt.room, tt.limit)
			ids := make([]int64, 0, len(got))
			for _, m := range got {
				if tt.room != "" {
					require.Equal(t, tt.room, m.Room)
				}
				ids = append(ids, m.ID)
			}
			require.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_HistoryLimit_KeepsIDsMonotonic(t *testing.T) {
	req := require.New(t)
	s := New(WithHistoryLimit(3))

	appendN(t, s, "general", 5)
	got := list(s, "", 10)

	req.Len(got, 3)
	req.Equal(int64(3), got[0].ID)
	req.Equal(int64(5), got[2].ID)

	next := appendN(t, s, "general", 1)
	req.Equal(int64(6), next[0].ID)
}

func TestStore_RoomLifecycle(t *testing.T) {
	req := require.New(t)
	s := New()

	// Given two members join the same room twice
	require.NoError(t, s.Update(func(tx *Txn) error {
		tx.AddMember("general", "a")
		tx.AddMember("general", "a")
		tx.AddMember("general", "b")
		return nil
	}))

	// Then membership is a set
	_ = s.View(func(tx *Txn) error {
		r, ok := tx.Room("general")
		req.True(ok)
		req.Equal([]string{"a", "b"}, r.Members)
		req.Equal(2, tx.Rooms()["general"].MemberCount)
		return nil
	})

	// When the members leave one by one
	require.NoError(t, s.Update(func(tx *Txn) error {
		req.False(tx.RemoveMember("general", "a"))
		req.True(tx.RemoveMember("general", "b"))
		req.False(tx.RemoveMember("general", "b"))
		return nil
	}))

	// Then the room is gone
	_ = s.View(func(tx *Txn) error {
		_, ok := tx.Room("general")
		req.False(ok)
		req.NotContains(tx.Rooms(), "general")
		return nil
	})
}

func TestStore_Sessions(t *testing.T) {
	req := require.New(t)
	s := New(WithClock(fixedClock()))

	require.NoError(t, s.Update(func(tx *Txn) error {
		tx.UpsertSession("s1", "")
		tx.UpsertSession("s2", "bob")
		tx.SetSessionRoom("s1", "general", "alice")
		tx.SetSessionRoom("missing", "general", "ghost")
		return nil
	}))

	_ = s.View(func(tx *Txn) error {
		sess, ok := tx.Session("s1")
		req.True(ok)
		req.Equal("alice", sess.DisplayName)
		req.Equal("general", sess.CurrentRoom)

		_, ok = tx.Session("missing")
		req.False(ok)

		all := tx.Sessions()
		req.Len(all, 2)
		req.Equal("s1", all[0].ID)
		return nil
	})

	// When the room is cleared without a name
	require.NoError(t, s.Update(func(tx *Txn) error {
		tx.SetSessionRoom("s1", "", "")
		tx.RemoveSession("s2")
		tx.RemoveSession("s2")
		return nil
	}))

	_ = s.View(func(tx *Txn) error {
		sess, _ := tx.Session("s1")
		req.False(sess.InRoom())
		req.Equal("alice", sess.DisplayName)
		req.Equal(1, tx.Stats().Sessions)
		return nil
	})
}

func TestStore_UpsertSession_Overwrites(t *testing.T) {
	req := require.New(t)
	s := New()

	require.NoError(t, s.Update(func(tx *Txn) error {
		tx.UpsertSession("s1", "alice")
		tx.SetSessionRoom("s1", "general", "")
		tx.UpsertSession("s1", "")
		return nil
	}))

	_ = s.View(func(tx *Txn) error {
		sess, ok := tx.Session("s1")
		req.True(ok)
		req.Empty(sess.DisplayName)
		req.Empty(sess.CurrentRoom)
		return nil
	})
}

func TestStore_View_RejectsWrites(t *testing.T) {
	s := New()
	require.Panics(t, func() {
		_ = s.View(func(tx *Txn) error {
			tx.AddMember("general", "a")
			return nil
		})
	})
}

func TestStore_ConcurrentAppends(t *testing.T) {
	req := require.New(t)
	s := New()

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = s.Update(func(tx *Txn) error {
					tx.AppendMessage("hi", "bot", fmt.Sprintf("room-%d", w%3), "")
					return nil
				})
			}
		}(w)
	}
	wg.Wait()

	got := list(s, "", workers*perWorker)
	req.Len(got, workers*perWorker)
	for i, m := range got {
		req.Equal(int64(i+1), m.ID)
	}
}
