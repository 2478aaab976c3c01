package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

const (
	attrCheater = "cheater"
	attrTrusted = "trusted"
)

type fileInfo struct {
	Authors     []string `json:"authors,omitempty"`
	Description string   `json:"description,omitempty"`
	Title       string   `json:"title,omitempty"`
	UpdateURL   string   `json:"update_url,omitempty"`
}

type lastSeen struct {
	PlayerName string `json:"player_name,omitempty"`
	Time       int64  `json:"time,omitempty"`
}

type playerListEntry struct {
	SteamID    string   `json:"steamid"`
	Attributes []string `json:"attributes"`
	LastSeen   lastSeen `json:"last_seen,omitempty"`
}

func (e playerListEntry) hasAttr(attr string) bool {
	for _, known := range e.Attributes {
		if strings.EqualFold(known, attr) {
			return true
		}
	}

	return false
}

type playerListSchema struct {
	Schema   string            `json:"$schema,omitempty"`
	Version  int               `json:"version,omitempty"`
	FileInfo fileInfo          `json:"file_info,omitempty"`
	Players  []playerListEntry `json:"players"`
}

// banListDoc is one loaded ban list document. origin is a filesystem path for
// local documents and the source URL for remote ones, remote documents are
// never written back.
type banListDoc struct {
	origin string
	remote bool
	list   playerListSchema
	ids    map[steamid.SteamID]playerListEntry
}

func (doc *banListDoc) reindex() {
	doc.ids = make(map[steamid.SteamID]playerListEntry, len(doc.list.Players))

	for _, entry := range doc.list.Players {
		sid := steamid.New(entry.SteamID)
		if !sid.Valid() {
			continue
		}

		doc.ids[sid] = entry
	}
}

// listStore holds every loaded ban list document. The first loaded document is
// the mutable "user" document, the only one eligible for additions, removals
// and persistence.
type listStore struct {
	mu     sync.RWMutex
	docs   []*banListDoc
	client *http.Client
}

func newListStore() *listStore {
	return &listStore{
		client: &http.Client{Timeout: DurationListFetchTimeout},
	}
}

// LoadFile parses a local playerlist document and appends it to the store. A
// malformed document fails on its own and must not stop the caller from
// loading the remaining ones.
func (s *listStore) LoadFile(path string) error {
	body, errRead := os.ReadFile(path)
	if errRead != nil {
		return errors.Join(errRead, errListRead)
	}

	return s.loadBody(body, path, false)
}

// LoadURL fetches a remote playerlist once into a temp copy, then loads it
// identically to a local file.
func (s *listStore) LoadURL(ctx context.Context, url string) error {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if errReq != nil {
		return errors.Join(errReq, errListFetch)
	}

	resp, errResp := s.client.Do(req)
	if errResp != nil {
		return errors.Join(errResp, errListFetch)
	}

	defer IgnoreClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", errListFetch, resp.StatusCode)
	}

	body, errBody := io.ReadAll(resp.Body)
	if errBody != nil {
		return errors.Join(errBody, errListFetch)
	}

	tmpFile, errTmp := os.CreateTemp("", "votekicker_list_*.json")
	if errTmp != nil {
		return errors.Join(errTmp, errListFetch)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		if errRemove := os.Remove(tmpPath); errRemove != nil {
			slog.Warn("Failed to remove temporary list file", errAttr(errRemove))
		}
	}()

	if _, errWrite := tmpFile.Write(body); errWrite != nil {
		IgnoreClose(tmpFile)

		return errors.Join(errWrite, errListFetch)
	}

	if errClose := tmpFile.Close(); errClose != nil {
		return errors.Join(errClose, errListFetch)
	}

	saved, errRead := os.ReadFile(tmpPath)
	if errRead != nil {
		return errors.Join(errRead, errListRead)
	}

	return s.loadBody(saved, url, true)
}

func (s *listStore) loadBody(body []byte, origin string, remote bool) error {
	var schema playerListSchema
	if errDecode := json.Unmarshal(body, &schema); errDecode != nil {
		return errors.Join(errDecode, errListDecode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.docs {
		if existing.origin == origin {
			return errDuplicateURL
		}
	}

	doc := &banListDoc{origin: origin, remote: remote, list: schema}
	doc.reindex()

	s.docs = append(s.docs, doc)

	slog.Info("Loaded ban list document",
		slog.String("origin", origin),
		slog.String("title", schema.FileInfo.Title),
		slog.Int("players", len(schema.Players)))

	return nil
}

func (s *listStore) userDoc() *banListDoc {
	if len(s.docs) == 0 {
		return nil
	}

	return s.docs[0]
}

// AddUserEntry appends an id to the user document. Ids already present in the
// user document, or in any other loaded document, are rejected so that a
// player never carries a duplicate classification.
func (s *listStore) AddUserEntry(sid steamid.SteamID, name string, attrs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.userDoc()
	if user == nil {
		return errListNoUser
	}

	for _, doc := range s.docs {
		if _, found := doc.ids[sid]; found {
			return errDuplicateID
		}
	}

	entry := playerListEntry{
		SteamID:    sid.String(),
		Attributes: attrs,
		LastSeen: lastSeen{
			PlayerName: name,
			Time:       time.Now().Unix(),
		},
	}

	user.list.Players = append(user.list.Players, entry)
	user.ids[sid] = entry

	return nil
}

// RemoveUserEntry removes an id from the user document only. Removing an id
// that is not present is a no-op.
func (s *listStore) RemoveUserEntry(sid steamid.SteamID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.userDoc()
	if user == nil {
		return false
	}

	if _, found := user.ids[sid]; !found {
		return false
	}

	// Rebuilt non-nil so an emptied user document still serializes as [].
	players := make([]playerListEntry, 0, len(user.list.Players)-1)

	for _, entry := range user.list.Players {
		entrySid := steamid.New(entry.SteamID)
		if entrySid.Equal(sid) {
			continue
		}

		players = append(players, entry)
	}

	user.list.Players = players
	delete(user.ids, sid)

	return true
}

func (s *listStore) collectAttr(attr string, userOnly bool) steamid.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		seen = map[steamid.SteamID]bool{}
		ids  steamid.Collection
	)

	for idx, doc := range s.docs {
		if userOnly && idx > 0 {
			break
		}

		for sid, entry := range doc.ids {
			if seen[sid] || !entry.hasAttr(attr) {
				continue
			}

			seen[sid] = true

			ids = append(ids, sid)
		}
	}

	return ids
}

func (s *listStore) cheaterIDs() steamid.Collection {
	return s.collectAttr(attrCheater, false)
}

func (s *listStore) userCheaterIDs() steamid.Collection {
	return s.collectAttr(attrCheater, true)
}

func (s *listStore) hasAttr(sid steamid.SteamID, attr string, userOnly bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for idx, doc := range s.docs {
		if userOnly && idx > 0 {
			break
		}

		if entry, found := doc.ids[sid]; found && entry.hasAttr(attr) {
			return true
		}
	}

	return false
}

func (s *listStore) isCheater(sid steamid.SteamID) bool {
	return s.hasAttr(sid, attrCheater, false)
}

func (s *listStore) isUserCheater(sid steamid.SteamID) bool {
	return s.hasAttr(sid, attrCheater, true)
}

func (s *listStore) isTrusted(sid steamid.SteamID) bool {
	return s.hasAttr(sid, attrTrusted, false)
}

// newestCheaterIDs returns the most recently seen cheater entries across all
// documents, newest first. Used for voice ban export where the file has a
// hard entry limit and the most recent sightings are the most useful.
func (s *listStore) newestCheaterIDs(max int) steamid.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type seenEntry struct {
		sid  steamid.SteamID
		seen int64
	}

	var (
		dedup   = map[steamid.SteamID]bool{}
		entries []seenEntry
	)

	for _, doc := range s.docs {
		for sid, entry := range doc.ids {
			if dedup[sid] || !entry.hasAttr(attrCheater) {
				continue
			}

			dedup[sid] = true

			entries = append(entries, seenEntry{sid: sid, seen: entry.LastSeen.Time})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seen > entries[j].seen
	})

	var ids steamid.Collection

	for i, entry := range entries {
		if i == max {
			break
		}

		ids = append(ids, entry.sid)
	}

	return ids
}

const exportIndentSize = 4

// SaveUserFile serializes the user document back to its origin path. Non-user
// documents are never persisted.
func (s *listStore) SaveUserFile() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := s.userDoc()
	if user == nil {
		return errListNoUser
	}

	if user.remote {
		return errListSave
	}

	outputFile, errOpen := os.OpenFile(user.origin, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o755)
	if errOpen != nil {
		return errors.Join(errOpen, errListSave)
	}

	defer LogClose(outputFile)

	encoder := json.NewEncoder(outputFile)
	encoder.SetIndent("", strings.Repeat(" ", exportIndentSize))

	if errEncode := encoder.Encode(user.list); errEncode != nil {
		return errors.Join(errEncode, errListSave)
	}

	return nil
}

// newUserListSchema is the empty document written when no local playerlist
// exists yet.
func newUserListSchema() playerListSchema {
	return playerListSchema{
		Version: 1,
		FileInfo: fileInfo{
			Title:       "local",
			Description: "votekicker local player list",
		},
		Players: []playerListEntry{},
	}
}
