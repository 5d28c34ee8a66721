package rewards

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rewards.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetBalance_UnknownPlayerIsZeroValued(t *testing.T) {
	store := newTestStore(t)
	b, err := store.GetBalance(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", b.PlayerID)
	require.Equal(t, int64(0), b.Coins)
	require.Equal(t, int64(0), b.WinsPoker)
	require.Equal(t, int64(0), b.WinsUno)
}

func TestIssueWin_CreatesAndAccumulates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.IssueWin(ctx, "alice", GamePoker, 100))
	b, err := store.GetBalance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(100), b.Coins)
	require.Equal(t, int64(1), b.WinsPoker)
	require.Equal(t, int64(0), b.WinsUno)

	require.NoError(t, store.IssueWin(ctx, "alice", GamePoker, 50))
	require.NoError(t, store.IssueWin(ctx, "alice", GameUno, 25))
	b, err = store.GetBalance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(175), b.Coins)
	require.Equal(t, int64(2), b.WinsPoker)
	require.Equal(t, int64(1), b.WinsUno)
}

func TestIssueWin_UnknownGameTypeRejected(t *testing.T) {
	store := newTestStore(t)
	err := store.IssueWin(context.Background(), "alice", GameType("chess"), 10)
	require.Error(t, err)
}

func TestIssueWin_DistinctPlayersIndependent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.IssueWin(ctx, "alice", GamePoker, 100))
	require.NoError(t, store.IssueWin(ctx, "bob", GameUno, 10))

	alice, err := store.GetBalance(ctx, "alice")
	require.NoError(t, err)
	bob, err := store.GetBalance(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(100), alice.Coins)
	require.Equal(t, int64(10), bob.Coins)
	require.Equal(t, int64(1), alice.WinsPoker)
	require.Equal(t, int64(0), alice.WinsUno)
	require.Equal(t, int64(1), bob.WinsUno)
}

func TestSetCosmetic_UpsertsIndependentSlots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetCosmetic(ctx, "alice", "a", "golden-deck"))
	require.NoError(t, store.SetCosmetic(ctx, "alice", "b", "red-table-felt"))
	require.NoError(t, store.SetCosmetic(ctx, "alice", "a", "silver-deck"))

	var a, b string
	row := store.db.QueryRowContext(ctx, `SELECT cosmetic_a, cosmetic_b FROM rewards WHERE player_id = ?`, "alice")
	require.NoError(t, row.Scan(&a, &b))
	require.Equal(t, "silver-deck", a)
	require.Equal(t, "red-table-felt", b)
}

func TestSetCosmetic_UnknownSlotRejected(t *testing.T) {
	store := newTestStore(t)
	err := store.SetCosmetic(context.Background(), "alice", "c", "value")
	require.Error(t, err)
}
