package message

import (
	"testing"

	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalInsert(t *testing.T) {
	m, err := NewInsert([]byte("hello"), block.PreferenceFast, 4096)
	require.NoError(t, err)

	raw := Marshal(m)
	got, n, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, m.Kind, got.Kind)
	assert.Equal(t, m.Value, got.Value)
	assert.Equal(t, m.Preference, got.Preference)
}

func TestMarshalUnmarshalUpsertWithPatches(t *testing.T) {
	m, err := NewUpsert(3, []byte("xyz"), block.PreferenceSlow, 4096)
	require.NoError(t, err)

	raw := Marshal(m)
	got, _, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Len(t, got.Patches, 1)
	assert.Equal(t, uint32(3), got.Patches[0].Offset)
	assert.Equal(t, []byte("xyz"), got.Patches[0].Data)
}

func TestMarshalUnmarshalDelete(t *testing.T) {
	m := NewDelete()
	raw := Marshal(m)
	got, _, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, KindDelete, got.Kind)
}
