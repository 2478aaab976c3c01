package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func mustEncodeList(t *testing.T, schema playerListSchema) []byte {
	t.Helper()

	body, errEncode := json.Marshal(schema)
	require.NoError(t, errEncode)

	return body
}

func newTestStore(t *testing.T) *listStore {
	t.Helper()

	store := newListStore()
	require.NoError(t, store.loadBody(mustEncodeList(t, newUserListSchema()),
		filepath.Join(t.TempDir(), "playerlist.local.json"), false))

	return store
}

func TestListStoreUserEntries(t *testing.T) {
	t.Parallel()

	var (
		store = newTestStore(t)
		sid   = steamid.New("[U:1:1170132]")
	)

	require.False(t, store.isCheater(sid))

	require.NoError(t, store.AddUserEntry(sid, "cheater one", []string{attrCheater}))
	require.True(t, store.isCheater(sid))
	require.True(t, store.isUserCheater(sid))

	// Adding the same id again is rejected.
	require.ErrorIs(t, store.AddUserEntry(sid, "cheater one", []string{attrCheater}), errDuplicateID)

	require.True(t, store.RemoveUserEntry(sid))
	require.False(t, store.isCheater(sid))

	// Removing an absent id is a no-op.
	require.False(t, store.RemoveUserEntry(sid))
}

func TestListStoreRejectsSharedDuplicates(t *testing.T) {
	t.Parallel()

	var (
		store = newTestStore(t)
		sid   = steamid.New("[U:1:1170132]")
	)

	shared := newUserListSchema()
	shared.Players = []playerListEntry{{SteamID: sid.String(), Attributes: []string{attrCheater}}}

	require.NoError(t, store.loadBody(mustEncodeList(t, shared), "https://example.com/list.json", true))

	require.True(t, store.isCheater(sid))
	require.False(t, store.isUserCheater(sid))

	// An id already classified by a shared document cannot be escalated into
	// the user document.
	require.ErrorIs(t, store.AddUserEntry(sid, "cheater one", []string{attrCheater}), errDuplicateID)

	// Shared document entries cannot be removed.
	require.False(t, store.RemoveUserEntry(sid))
}

func TestListStoreDuplicateOrigin(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	body := mustEncodeList(t, newUserListSchema())
	require.NoError(t, store.loadBody(body, "https://example.com/list.json", true))
	require.ErrorIs(t, store.loadBody(body, "https://example.com/list.json", true), errDuplicateURL)
}

func TestListStoreTrusted(t *testing.T) {
	t.Parallel()

	var (
		store = newTestStore(t)
		sid   = steamid.New("[U:1:32653229]")
	)

	require.NoError(t, store.AddUserEntry(sid, "friendly", []string{attrTrusted}))
	require.True(t, store.isTrusted(sid))
	require.False(t, store.isCheater(sid))
}

func TestListStoreSaveUserFile(t *testing.T) {
	t.Parallel()

	var (
		path = filepath.Join(t.TempDir(), "playerlist.local.json")
		sid  = steamid.New("[U:1:1170132]")
	)

	store := newListStore()
	require.NoError(t, store.loadBody(mustEncodeList(t, newUserListSchema()), path, false))
	require.NoError(t, store.AddUserEntry(sid, "cheater one", []string{attrCheater}))
	require.NoError(t, store.SaveUserFile())

	reloaded := newListStore()
	require.NoError(t, reloaded.LoadFile(path))
	require.True(t, reloaded.isUserCheater(sid))
}

func TestListStoreSaveRejectsRemote(t *testing.T) {
	t.Parallel()

	store := newListStore()
	require.NoError(t, store.loadBody(mustEncodeList(t, newUserListSchema()),
		"https://example.com/list.json", true))

	require.ErrorIs(t, store.SaveUserFile(), errListSave)
}

func TestListStoreNewestCheaters(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	doc := newUserListSchema()
	doc.Players = []playerListEntry{
		{SteamID: "[U:1:1]", Attributes: []string{attrCheater}, LastSeen: lastSeen{Time: 100}},
		{SteamID: "[U:1:2]", Attributes: []string{attrCheater}, LastSeen: lastSeen{Time: 300}},
		{SteamID: "[U:1:3]", Attributes: []string{attrCheater}, LastSeen: lastSeen{Time: 200}},
		{SteamID: "[U:1:4]", Attributes: []string{attrTrusted}, LastSeen: lastSeen{Time: 400}},
	}

	require.NoError(t, store.loadBody(mustEncodeList(t, doc), "https://example.com/list.json", true))

	newest := store.newestCheaterIDs(2)
	require.Equal(t, steamid.Collection{steamid.New("[U:1:2]"), steamid.New("[U:1:3]")}, newest)
}

func TestListStoreLoadURL(t *testing.T) {
	// No t.Parallel, TMPDIR is process state.
	tmpRoot := t.TempDir()
	t.Setenv("TMPDIR", tmpRoot)

	sid := steamid.New("[U:1:1170132]")

	shared := newUserListSchema()
	shared.Players = []playerListEntry{{SteamID: sid.String(), Attributes: []string{attrCheater}}}

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write(mustEncodeList(t, shared))
	}))
	defer server.Close()

	store := newTestStore(t)
	require.NoError(t, store.LoadURL(context.Background(), server.URL))
	require.True(t, store.isCheater(sid))
	require.ErrorIs(t, store.LoadURL(context.Background(), server.URL), errDuplicateURL)

	// The fetch staging file is cleaned up after the load.
	leftovers, errGlob := filepath.Glob(filepath.Join(tmpRoot, "votekicker_list_*"))
	require.NoError(t, errGlob)
	require.Empty(t, leftovers)
}

func TestListStoreLoadURLBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := newTestStore(t)
	require.ErrorIs(t, store.LoadURL(context.Background(), server.URL), errListFetch)
}

func TestListStoreSaveEmptiedUserList(t *testing.T) {
	t.Parallel()

	var (
		path = filepath.Join(t.TempDir(), "playerlist.local.json")
		sid  = steamid.New("[U:1:1170132]")
	)

	store := newListStore()
	require.NoError(t, store.loadBody(mustEncodeList(t, newUserListSchema()), path, false))
	require.NoError(t, store.AddUserEntry(sid, "cheater one", []string{attrCheater}))
	require.True(t, store.RemoveUserEntry(sid))
	require.NoError(t, store.SaveUserFile())

	// Removing the last entry must keep the players field an array, not null.
	body, errRead := os.ReadFile(path)
	require.NoError(t, errRead)
	require.Contains(t, string(body), `"players": []`)
	require.NotContains(t, string(body), "null")
}

func TestListStoreLoadFileMissing(t *testing.T) {
	t.Parallel()

	store := newListStore()
	require.ErrorIs(t, store.LoadFile(filepath.Join(t.TempDir(), "missing.json")), errListRead)
}

func TestListStoreLoadFileMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	store := newListStore()
	require.ErrorIs(t, store.LoadFile(path), errListDecode)
}
