package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestStore(t *testing.T) {
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewStore(db)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	run, err := store.LastRun(ctx, "proposals")
	require.NoError(t, err)
	require.Nil(t, run)

	base := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	err = store.RecordRun(ctx, Run{Dataset: "proposals", RunAt: base, RowCount: 100, Status: StatusOK})
	require.NoError(t, err)
	err = store.RecordRun(ctx, Run{Dataset: "proposals", RunAt: base.Add(time.Hour * 24), RowCount: 120, Status: StatusOK})
	require.NoError(t, err)
	err = store.RecordRun(ctx, Run{Dataset: "calair", RunAt: base, RowCount: 5000, Status: StatusSentinel})
	require.NoError(t, err)

	run, err = store.LastRun(ctx, "proposals")
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, 120, run.RowCount)
	require.Equal(t, StatusOK, run.Status)
	require.Equal(t, base.Add(time.Hour*24).Unix(), run.RunAt.Unix())

	run, err = store.LastRun(ctx, "calair")
	require.NoError(t, err)
	require.Equal(t, StatusSentinel, run.Status)
}
