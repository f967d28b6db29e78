package session

import (
	"context"
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/tiles-server/protocol"
)

func TestManager_JoinAssignsSmallestFreeID(t *testing.T) {
	m := NewManager()
	players, _ := joinN(t, m, 3)

	assert.Equal(t, 0, players[0].ID)
	assert.Equal(t, 1, players[1].ID)
	assert.Equal(t, 2, players[2].ID)

	require.True(t, m.Disconnect(players[1]))

	p, err := m.Join(newFakeConn(9))
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, "10.0.0.9:4000", p.Name)
	assert.Equal(t, []int{0, 2, 1}, m.QueueIDs())
}

func TestManager_JoinServerFull(t *testing.T) {
	m := NewManagerWithLimit(2)
	joinN(t, m, 2)

	_, err := m.Join(newFakeConn(3))
	assert.ErrorIs(t, err, ErrServerFull)
	assert.Equal(t, 2, m.Connected())
}

func TestManager_JoinAnnouncements(t *testing.T) {
	m := NewManager()
	_, conns := joinN(t, m, 2)

	assert.Equal(t, []protocol.Message{
		protocol.Welcome{ID: 0},
		protocol.PlayerJoined{Name: "10.0.0.2:4000", ID: 1},
	}, conns[0].messages(t))

	assert.Equal(t, []protocol.Message{
		protocol.Welcome{ID: 1},
		protocol.PlayerJoined{Name: "10.0.0.1:4000", ID: 0},
	}, conns[1].messages(t))
}

func TestManager_PoolsStayDisjoint(t *testing.T) {
	m := NewManager()
	rng := rand.New(rand.NewPCG(1, 2))
	var live []*Player

	check := func() {
		queue := m.QueueIDs()
		lobby := m.LobbyIDs()
		seen := map[int]bool{}
		for _, id := range append(queue, lobby...) {
			require.False(t, seen[id], "player %d in two places", id)
			seen[id] = true
		}
		require.Len(t, seen, m.Connected())
		require.Len(t, seen, len(live))
	}

	for step := 0; step < 500; step++ {
		switch rng.IntN(6) {
		case 0, 1:
			p, err := m.Join(newFakeConn(step))
			require.NoError(t, err)
			live = append(live, p)
		case 2:
			if len(live) > 0 {
				i := rng.IntN(len(live))
				m.Disconnect(live[i])
				live = append(live[:i], live[i+1:]...)
			}
		case 3:
			m.FormLobby(4, rng.IntN)
		case 4:
			m.RotateLobby()
			if lobby := m.LobbyIDs(); len(lobby) > 0 {
				m.Eliminate(lobby[rng.IntN(len(lobby))])
			}
		case 5:
			if len(live) > 0 {
				m.ReturnToQueue(live[rng.IntN(len(live))].ID)
			}
		}
		check()
	}
}

func TestManager_RotateLobbyIsCyclicShift(t *testing.T) {
	m := NewManager()
	joinN(t, m, 4)
	require.Equal(t, 4, m.MoveQueueToLobby(0, 1, 2, 3))

	before := m.LobbyIDs()
	for i := 1; i <= 4; i++ {
		require.True(t, m.RotateLobby())
		after := m.LobbyIDs()
		for j := range before {
			assert.Equal(t, before[(j+i)%4], after[j])
		}
	}
	assert.Equal(t, before, m.LobbyIDs())
}

func TestManager_RotateLobbyNeedsTwo(t *testing.T) {
	m := NewManager()
	joinN(t, m, 1)
	assert.False(t, m.RotateLobby())
	m.MoveQueueToLobby(0)
	assert.False(t, m.RotateLobby())
}

func TestManager_AdvanceTurn(t *testing.T) {
	m := NewManager()
	joinN(t, m, 3)
	m.MoveQueueToLobby(0, 1, 2)

	assert.False(t, m.AdvanceTurn(1))
	assert.Equal(t, []int{0, 1, 2}, m.LobbyIDs())
	assert.True(t, m.AdvanceTurn(0))
	assert.Equal(t, []int{1, 2, 0}, m.LobbyIDs())
}

func TestManager_MoveQueueToLobbySkipsMissing(t *testing.T) {
	m := NewManager()
	joinN(t, m, 3)

	assert.Equal(t, 2, m.MoveQueueToLobby(2, 7, 0))
	assert.Equal(t, []int{2, 0}, m.LobbyIDs())
	assert.Equal(t, []int{1}, m.QueueIDs())
	assert.Equal(t, 0, m.MoveQueueToLobby(2))
}

func TestManager_FormLobby(t *testing.T) {
	t.Run("caps at limit", func(t *testing.T) {
		m := NewManager()
		joinN(t, m, 6)
		rng := rand.New(rand.NewPCG(7, 7))

		lobby := m.FormLobby(4, rng.IntN)
		assert.Len(t, lobby, 4)
		assert.Len(t, m.QueueIDs(), 2)
	})

	t.Run("takes everyone below limit", func(t *testing.T) {
		m := NewManager()
		joinN(t, m, 3)

		lobby := m.FormLobby(4, func(n int) int { return n - 1 })
		assert.Equal(t, []int{2, 1, 0}, lobby)
		assert.Empty(t, m.QueueIDs())
	})

	t.Run("disband", func(t *testing.T) {
		m := NewManager()
		joinN(t, m, 2)
		m.FormLobby(4, func(int) int { return 0 })
		assert.Equal(t, 2, m.DisbandLobby())
		assert.Empty(t, m.LobbyIDs())
		assert.Equal(t, []int{0, 1}, m.QueueIDs())
	})
}

func TestManager_DisconnectIsIdempotent(t *testing.T) {
	m := NewManager()
	players, conns := joinN(t, m, 2)
	conns[1].reset()

	assert.True(t, m.Disconnect(players[0]))
	assert.False(t, m.Disconnect(players[0]))
	assert.True(t, conns[0].isClosed())
	assert.True(t, players[0].Gone())

	assert.Equal(t, []protocol.Message{protocol.PlayerLeft{ID: 0}}, conns[1].messages(t))
	assert.Equal(t, []int{1}, m.QueueIDs())
}

func TestManager_DisconnectStaleHandle(t *testing.T) {
	m := NewManager()
	players, _ := joinN(t, m, 1)
	require.True(t, m.Disconnect(players[0]))

	// the id is reused by a new player; the old handle must not remove it
	fresh, err := m.Join(newFakeConn(5))
	require.NoError(t, err)
	require.Equal(t, players[0].ID, fresh.ID)

	assert.False(t, m.Disconnect(players[0]))
	assert.Equal(t, 1, m.Connected())
}

func TestManager_DisconnectDuringGame(t *testing.T) {
	t.Run("acted lobby member is eliminated", func(t *testing.T) {
		m := NewManager()
		players, conns := joinN(t, m, 3)
		m.MoveQueueToLobby(0, 1, 2)
		m.BeginGame("g1")
		place := protocol.PlaceTile{ID: 1, TileID: 3, X: 0, Y: 2}
		require.True(t, m.CommitMove(players[1], place, func() bool { return true }))
		conns[0].reset()

		require.True(t, m.Disconnect(players[1]))
		assert.Equal(t, []protocol.Message{
			protocol.PlayerEliminated{ID: 1},
			protocol.PlayerLeft{ID: 1},
		}, conns[0].messages(t))
		assert.Equal(t, []protocol.Message{place, protocol.PlayerEliminated{ID: 1}}, m.History())
		assert.Equal(t, []int{0, 2}, m.LobbyIDs())
	})

	t.Run("member who never acted just leaves", func(t *testing.T) {
		m := NewManager()
		players, conns := joinN(t, m, 2)
		m.MoveQueueToLobby(0, 1)
		m.BeginGame("g2")
		conns[0].reset()

		require.True(t, m.Disconnect(players[1]))
		assert.Equal(t, []protocol.Message{protocol.PlayerLeft{ID: 1}}, conns[0].messages(t))
		assert.Empty(t, m.History())
	})

	t.Run("queued player who acted in no game", func(t *testing.T) {
		m := NewManager()
		players, conns := joinN(t, m, 3)
		m.MoveQueueToLobby(0, 1)
		m.BeginGame("g3")
		conns[0].reset()

		require.True(t, m.Disconnect(players[2]))
		assert.Equal(t, []protocol.Message{protocol.PlayerLeft{ID: 2}}, conns[0].messages(t))
	})
}

func TestManager_BeginGameAndTurns(t *testing.T) {
	m := NewManager()
	_, conns := joinN(t, m, 3)
	m.MoveQueueToLobby(2, 0)
	conns[1].reset()

	order := m.BeginGame("g1")
	assert.Equal(t, []int{2, 0}, order)
	require.True(t, m.AnnounceTurn(2))
	assert.False(t, m.AnnounceTurn(1))

	// queued players see the game too
	assert.Equal(t, []protocol.Message{
		protocol.GameStart{},
		protocol.PlayerTurn{ID: 2},
		protocol.PlayerTurn{ID: 0},
		protocol.PlayerTurn{ID: 2},
	}, conns[1].messages(t))

	status := m.Status()
	assert.True(t, status.InGame)
	assert.Equal(t, "g1", status.GameID)
	assert.Equal(t, 2, status.Current)
	assert.NotNil(t, status.StartedAt)
	assert.Len(t, status.Queue, 1)
	assert.Len(t, status.Lobby, 2)

	p, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, 2, p.ID)
}

func TestManager_LateJoinerReplay(t *testing.T) {
	m := NewManager()
	joinN(t, m, 2)
	m.MoveQueueToLobby(0, 1)
	m.BeginGame("g1")
	m.AnnounceTurn(0)
	m.Broadcast(protocol.PlaceTile{ID: 0, TileID: 3, Rotation: 1, X: 0, Y: 2}, true)
	m.Broadcast(protocol.AddTileToHand{TileID: 9}, false)
	m.RotateLobby()
	m.AnnounceTurn(1)

	conn := newFakeConn(3)
	p, err := m.Join(conn)
	require.NoError(t, err)
	assert.Equal(t, 2, p.ID)

	assert.Equal(t, []protocol.Message{
		protocol.Welcome{ID: 2},
		protocol.PlayerJoined{Name: "10.0.0.1:4000", ID: 0},
		protocol.PlayerJoined{Name: "10.0.0.2:4000", ID: 1},
		protocol.GameStart{},
		protocol.PlayerTurn{ID: 0},
		protocol.PlayerTurn{ID: 1},
		protocol.PlaceTile{ID: 0, TileID: 3, Rotation: 1, X: 0, Y: 2},
		protocol.PlayerTurn{ID: 1},
	}, conn.messages(t))
	assert.Equal(t, []int{2}, m.QueueIDs())

	// later broadcasts arrive exactly once
	conn.reset()
	m.Broadcast(protocol.MoveToken{ID: 1, X: 1, Y: 2, Position: 6}, true)
	assert.Equal(t, []protocol.Message{protocol.MoveToken{ID: 1, X: 1, Y: 2, Position: 6}}, conn.messages(t))
}

func TestManager_LateJoinerCatchUpIsOneWrite(t *testing.T) {
	m := NewManager()
	joinN(t, m, 2)
	m.MoveQueueToLobby(0, 1)
	m.BeginGame("big")
	for i := 0; i < 2000; i++ {
		m.Broadcast(protocol.MoveToken{ID: i % 2, X: i % 16, Y: i / 16 % 16, Position: i % 8}, true)
	}

	conn := newFakeConn(3)
	_, err := m.Join(conn)
	require.NoError(t, err)

	conn.mu.Lock()
	writes := len(conn.frames)
	conn.mu.Unlock()
	assert.Equal(t, 1, writes)

	msgs := conn.messages(t)
	// welcome, two introductions, game start, two turn-order entries
	require.Len(t, msgs, 6+2000)
	assert.Equal(t, protocol.Welcome{ID: 2}, msgs[0])
	assert.Equal(t, protocol.MoveToken{ID: 1, X: 15, Y: 12, Position: 7}, msgs[len(msgs)-1])
}

func TestManager_ReplaySnapshot(t *testing.T) {
	m := NewManager()
	joinN(t, m, 2)

	r := m.Replay()
	assert.False(t, r.InGame)
	assert.Empty(t, r.Messages)

	m.MoveQueueToLobby(0, 1)
	m.BeginGame("g9")
	r = m.Replay()
	assert.True(t, r.InGame)
	assert.Equal(t, "g9", r.GameID)
	assert.Equal(t, m.Status().Seq, r.Seq)
	assert.Equal(t, []protocol.Message{
		protocol.GameStart{},
		protocol.PlayerTurn{ID: 0},
		protocol.PlayerTurn{ID: 1},
	}, r.Messages)
}

func TestManager_EliminateAndEndGame(t *testing.T) {
	m := NewManager()
	joinN(t, m, 3)
	m.MoveQueueToLobby(0, 1, 2)
	m.BeginGame("g1")
	m.Broadcast(protocol.PlaceTile{ID: 0, TileID: 1, X: 0, Y: 0}, true)

	require.True(t, m.Eliminate(1))
	assert.False(t, m.Eliminate(1))
	assert.Equal(t, []int{0, 2}, m.LobbyIDs())
	assert.Equal(t, []int{1}, m.QueueIDs())

	require.True(t, m.Eliminate(2))
	rec := m.EndGame()
	assert.Equal(t, "g1", rec.ID)
	assert.Equal(t, 0, rec.Winner)
	assert.Equal(t, []int{0, 1, 2}, rec.TurnOrder)
	assert.Equal(t, []protocol.Message{
		protocol.PlaceTile{ID: 0, TileID: 1, X: 0, Y: 0},
		protocol.PlayerEliminated{ID: 1},
		protocol.PlayerEliminated{ID: 2},
	}, rec.Events)
	assert.False(t, rec.EndedAt.Before(rec.StartedAt))

	status := m.Status()
	assert.False(t, status.InGame)
	assert.Equal(t, -1, status.Current)
	assert.Zero(t, status.HistoryLength)
	assert.Empty(t, status.Lobby)
	assert.Equal(t, []int{1, 2, 0}, m.QueueIDs())
}

func TestManager_EndGameWithoutSurvivor(t *testing.T) {
	m := NewManager()
	players, _ := joinN(t, m, 2)
	m.MoveQueueToLobby(0, 1)
	m.BeginGame("g1")
	m.Disconnect(players[0])
	m.Disconnect(players[1])

	rec := m.EndGame()
	assert.Equal(t, -1, rec.Winner)
}

func TestManager_DurableOnlyDuringGame(t *testing.T) {
	m := NewManager()
	joinN(t, m, 1)
	m.Broadcast(protocol.PlayerEliminated{ID: 0}, true)
	assert.Empty(t, m.History())
}

func TestManager_Observers(t *testing.T) {
	m := NewManager()
	obs := &recordingObserver{}
	m.AddObserver(obs)

	joinN(t, m, 2)
	m.Broadcast(protocol.Countdown{}, false)

	require.Len(t, obs.events, 3)
	for i, ev := range obs.events {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
	assert.Equal(t, protocol.PlayerJoined{Name: "10.0.0.1:4000", ID: 0}, obs.events[0].Message)
	assert.Equal(t, protocol.Countdown{}, obs.events[2].Message)
}

func TestManager_WaitForQueue(t *testing.T) {
	t.Run("wakes on join", func(t *testing.T) {
		m := NewManager()
		joinN(t, m, 1)

		done := make(chan error, 1)
		go func() { done <- m.WaitForQueue(context.Background(), 2) }()

		select {
		case <-done:
			t.Fatal("returned with one queued player")
		case <-time.After(20 * time.Millisecond):
		}

		_, err := m.Join(newFakeConn(2))
		require.NoError(t, err)

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("did not wake after join")
		}
	})

	t.Run("context cancel", func(t *testing.T) {
		m := NewManager()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, m.WaitForQueue(ctx, 2), context.DeadlineExceeded)
	})
}

func TestManager_BroadcastDropIsLogged(t *testing.T) {
	m := NewManager()
	_, conns := joinN(t, m, 2)
	conns[0].full = true

	m.Broadcast(protocol.Countdown{}, false)
	msgs := conns[1].messages(t)
	assert.Equal(t, protocol.Countdown{}, msgs[len(msgs)-1])
}

func TestManager_StatusOrdering(t *testing.T) {
	m := NewManager()
	players, _ := joinN(t, m, 3)
	m.MoveQueueToLobby(1)
	m.BeginGame("g1")
	require.True(t, m.CommitMove(players[1], protocol.MoveToken{ID: 1}, func() bool { return true }))

	status := m.Status()
	assert.Equal(t, 3, status.Connected)
	ids := []int{}
	for _, p := range status.Queue {
		ids = append(ids, p.ID)
	}
	assert.True(t, sort.IntsAreSorted(ids))
	require.Len(t, status.Lobby, 1)
	assert.True(t, status.Lobby[0].Acted)
}

func TestManager_CommitMove(t *testing.T) {
	move := protocol.PlaceTile{ID: 1, TileID: 7, X: 0, Y: 1}

	t.Run("applies and broadcasts", func(t *testing.T) {
		m := NewManager()
		players, conns := joinN(t, m, 2)
		m.MoveQueueToLobby(0, 1)
		m.BeginGame("g1")
		conns[0].reset()

		applied := false
		require.True(t, m.CommitMove(players[1], move, func() bool {
			applied = true
			return true
		}))
		assert.True(t, applied)
		assert.Equal(t, []protocol.Message{move}, conns[0].messages(t))
		assert.Equal(t, []protocol.Message{move}, m.History())
		assert.True(t, m.Status().Lobby[1].Acted)
	})

	t.Run("rejected move is not announced", func(t *testing.T) {
		m := NewManager()
		players, conns := joinN(t, m, 2)
		m.MoveQueueToLobby(0, 1)
		m.BeginGame("g1")
		conns[0].reset()

		assert.False(t, m.CommitMove(players[1], move, func() bool { return false }))
		assert.Empty(t, conns[0].messages(t))
		assert.Empty(t, m.History())
		assert.False(t, m.Status().Lobby[1].Acted)
	})

	t.Run("departed player", func(t *testing.T) {
		m := NewManager()
		players, conns := joinN(t, m, 3)
		m.MoveQueueToLobby(0, 1, 2)
		m.BeginGame("g1")
		require.True(t, m.Disconnect(players[1]))

		// a newcomer reuses the freed id
		reused, err := m.Join(newFakeConn(9))
		require.NoError(t, err)
		require.Equal(t, 1, reused.ID)
		conns[0].reset()

		called := false
		assert.False(t, m.CommitMove(players[1], move, func() bool {
			called = true
			return true
		}))
		assert.False(t, called)
		assert.Empty(t, conns[0].messages(t))
		assert.Empty(t, m.History())
		for _, info := range m.Status().Queue {
			assert.False(t, info.Acted)
		}
	})

	t.Run("queued player", func(t *testing.T) {
		m := NewManager()
		players, _ := joinN(t, m, 3)
		m.MoveQueueToLobby(0, 1)
		m.BeginGame("g1")
		assert.False(t, m.CommitMove(players[2], protocol.MoveToken{ID: 2}, func() bool { return true }))
	})

	t.Run("no game running", func(t *testing.T) {
		m := NewManager()
		players, _ := joinN(t, m, 2)
		m.MoveQueueToLobby(0, 1)
		assert.False(t, m.CommitMove(players[0], protocol.MoveToken{ID: 0}, func() bool { return true }))
	})
}
