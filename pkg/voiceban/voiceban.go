// Package voiceban reads and writes the games binary voice_ban.dt mute list.
//
// The on disk layout is a 4 byte header followed by fixed 32 byte null padded
// entries, each holding a steam3 formatted id. The game itself bounds the file
// at 256 entries, FIFO.
package voiceban

import (
	"bytes"
	"errors"
	"io"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

const (
	banMgrVersion = 1
	idSize        = 32

	// MaxEntries is the FIFO bound enforced by the game itself.
	MaxEntries = 256
)

var (
	ErrReadHeader  = errors.New("failed to read voice ban header")
	ErrBadHeader   = errors.New("invalid voice ban header")
	ErrWriteHeader = errors.New("failed to write voice ban header")
	ErrWriteEntry  = errors.New("failed to write voice ban entry")
)

// Read parses a voice_ban.dt stream. A header whose sentinel byte is wrong or
// whose reserved bytes are non zero rejects the whole file. Entries that do
// not parse as a valid steamid are skipped rather than failing the load.
func Read(reader io.Reader) (steamid.Collection, error) {
	var header [4]byte

	if _, errHeader := io.ReadFull(reader, header[:]); errHeader != nil {
		return nil, errors.Join(errHeader, ErrReadHeader)
	}

	if header[0] != banMgrVersion || header[1] != 0 || header[2] != 0 || header[3] != 0 {
		return nil, ErrBadHeader
	}

	var ids steamid.Collection

	for {
		var entry [idSize]byte

		_, errRead := io.ReadFull(reader, entry[:])
		if errors.Is(errRead, io.EOF) {
			break
		} else if errRead != nil {
			return nil, errors.Join(errRead, ErrReadHeader)
		}

		// The id runs to the first null byte, or the full 32 bytes if none.
		raw := entry[:]
		if idx := bytes.IndexByte(raw, 0); idx >= 0 {
			raw = raw[:idx]
		}

		parsed := steamid.New(string(raw))
		if !parsed.Valid() {
			continue
		}

		ids = append(ids, parsed)
	}

	return ids, nil
}

// Write serializes the ids in voice_ban.dt format. Anything beyond MaxEntries
// is dropped since the game would do the same on next load.
func Write(output io.Writer, steamIDs steamid.Collection) error {
	if _, errHeader := output.Write([]byte{banMgrVersion, 0, 0, 0}); errHeader != nil {
		return errors.Join(errHeader, ErrWriteHeader)
	}

	if len(steamIDs) > MaxEntries {
		steamIDs = steamIDs[:MaxEntries]
	}

	for _, sid := range steamIDs {
		var (
			raw      = []byte(sid.Steam3())
			sidBytes []byte
		)

		sidBytes = append(sidBytes, raw...)

		// pad output
		for len(sidBytes) < idSize {
			sidBytes = append(sidBytes, 0)
		}

		if _, errWrite := output.Write(sidBytes); errWrite != nil {
			return errors.Join(errWrite, ErrWriteEntry)
		}
	}

	return nil
}
