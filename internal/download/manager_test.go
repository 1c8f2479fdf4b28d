package download

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/grabarr/internal/media"
)

func TestCancelRemovesRemoteAndLocal(t *testing.T) {
	db := setupTestDB(t)
	env := newTestEnv(t, db)
	ref := insertTestItem(t, db, media.KindMovie, "Heat")
	d := addActiveDownload(t, env, ref, "nzo_1")

	env.client.EXPECT().Remove(gomock.Any(), "nzo_1", true).Return(nil)

	require.NoError(t, env.manager.Cancel(context.Background(), d.ID, true))

	_, err := env.store.Get(d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelRemoteFailureStillDeletes(t *testing.T) {
	db := setupTestDB(t)
	env := newTestEnv(t, db)
	ref := insertTestItem(t, db, media.KindMovie, "Heat")
	d := addActiveDownload(t, env, ref, "nzo_1")

	env.client.EXPECT().Remove(gomock.Any(), "nzo_1", false).Return(errors.New("gone already"))

	require.NoError(t, env.manager.Cancel(context.Background(), d.ID, false))

	_, err := env.store.Get(d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelNotSubmittedSkipsRemote(t *testing.T) {
	db := setupTestDB(t)
	env := newTestEnv(t, db)
	ref := insertTestItem(t, db, media.KindMovie, "Heat")
	d := &Download{Ref: ref, Client: "sab-main", Status: StatusQueued}
	require.NoError(t, env.store.Add(d))

	// No Remove expectation: nothing was ever submitted.
	require.NoError(t, env.manager.Cancel(context.Background(), d.ID, true))
}

func TestCancelUnknownDownload(t *testing.T) {
	db := setupTestDB(t)
	env := newTestEnv(t, db)

	err := env.manager.Cancel(context.Background(), 404, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPickClientLowestPriorityWins(t *testing.T) {
	m := &Manager{clients: []*RegisteredClient{
		{Name: "backup", Priority: 10, Enabled: true},
		{Name: "primary", Priority: 1, Enabled: true},
		{Name: "disabled", Priority: 0, Enabled: false},
	}}
	rc := m.pickClient()
	require.NotNil(t, rc)
	assert.Equal(t, "primary", rc.Name)
}

func TestPickClientNoneEnabled(t *testing.T) {
	m := &Manager{clients: []*RegisteredClient{
		{Name: "off", Enabled: false},
	}}
	assert.Nil(t, m.pickClient())
}
