package voiceban_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/dgrives/votekicker/pkg/voiceban"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func TestVoiceBans(t *testing.T) {
	t.Parallel()

	ids := steamid.Collection{
		steamid.New("[U:1:1170132]"),
		steamid.New("[U:1:32653229]"),
		steamid.New("[U:1:1176385561]"),
	}

	var buf bytes.Buffer
	require.NoError(t, voiceban.Write(&buf, ids))

	decoded, errRead := voiceban.Read(&buf)
	require.NoError(t, errRead)
	require.Equal(t, ids, decoded)
}

func TestVoiceBansBadHeader(t *testing.T) {
	t.Parallel()

	_, errVersion := voiceban.Read(bytes.NewReader([]byte{2, 0, 0, 0}))
	require.ErrorIs(t, errVersion, voiceban.ErrBadHeader)

	_, errPadding := voiceban.Read(bytes.NewReader([]byte{1, 0, 0, 1}))
	require.ErrorIs(t, errPadding, voiceban.ErrBadHeader)

	_, errShort := voiceban.Read(bytes.NewReader([]byte{1, 0}))
	require.ErrorIs(t, errShort, voiceban.ErrReadHeader)
}

func TestVoiceBansEntryLimit(t *testing.T) {
	t.Parallel()

	var ids steamid.Collection
	for i := 0; i < voiceban.MaxEntries+10; i++ {
		ids = append(ids, steamid.New(fmt.Sprintf("[U:1:%d]", i+1)))
	}

	var buf bytes.Buffer
	require.NoError(t, voiceban.Write(&buf, ids))

	decoded, errRead := voiceban.Read(&buf)
	require.NoError(t, errRead)
	require.Len(t, decoded, voiceban.MaxEntries)
}
