package message

import (
	"testing"

	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInsertRejectsOversized(t *testing.T) {
	_, err := NewInsert(make([]byte, 10), block.PreferenceNone, 8)
	require.Error(t, err)
}

func TestApplyInsertSetsValue(t *testing.T) {
	var v Value
	a := DefaultAction{}
	msg, err := NewInsert([]byte("hello"), block.PreferenceFast, 1024)
	require.NoError(t, err)

	a.Apply([]byte("k"), msg, &v)
	assert.True(t, v.Present)
	assert.Equal(t, []byte("hello"), v.Data)
}

func TestApplyDeleteClearsValue(t *testing.T) {
	v := Value{Present: true, Data: []byte("x")}
	DefaultAction{}.Apply([]byte("k"), NewDelete(), &v)
	assert.False(t, v.Present)
	assert.Nil(t, v.Data)
}

func TestApplyUpsertZeroPadsAbsentValue(t *testing.T) {
	var v Value
	msg, err := NewUpsert(4, []byte("AB"), block.PreferenceNone, 1024)
	require.NoError(t, err)

	DefaultAction{}.Apply([]byte("k"), msg, &v)
	require.True(t, v.Present)
	assert.Equal(t, []byte{0, 0, 0, 0, 'A', 'B'}, v.Data)
}

func TestApplyUpsertExtendsExistingValue(t *testing.T) {
	v := Value{Present: true, Data: []byte("hello")}
	msg, err := NewUpsert(3, []byte("LO!"), block.PreferenceNone, 1024)
	require.NoError(t, err)

	DefaultAction{}.Apply([]byte("k"), msg, &v)
	assert.Equal(t, []byte("helLO!"), v.Data)
}

func TestMergeInsertThenDeleteKeepsDelete(t *testing.T) {
	a := DefaultAction{}
	older, _ := NewInsert([]byte("x"), block.PreferenceNone, 1024)
	merged := a.Merge([]byte("k"), older, NewDelete())
	assert.Equal(t, KindDelete, merged.Kind)
}

func TestMergeUpsertUpsertConcatenatesPatches(t *testing.T) {
	a := DefaultAction{}
	m1, _ := NewUpsert(0, []byte("ab"), block.PreferenceNone, 1024)
	m2, _ := NewUpsert(2, []byte("cd"), block.PreferenceNone, 1024)

	merged := a.Merge([]byte("k"), m1, m2)
	require.Equal(t, KindUpsert, merged.Kind)
	require.Len(t, merged.Patches, 2)

	var v Value
	a.Apply([]byte("k"), merged, &v)
	assert.Equal(t, []byte("abcd"), v.Data)
}

func TestMergeInsertUpsertResolvesToInsert(t *testing.T) {
	a := DefaultAction{}
	ins, _ := NewInsert([]byte("hello"), block.PreferenceNone, 1024)
	up, _ := NewUpsert(0, []byte("HE"), block.PreferenceNone, 1024)

	merged := a.Merge([]byte("k"), ins, up)
	require.Equal(t, KindInsert, merged.Kind)
	assert.Equal(t, []byte("HEllo"), merged.Value)
}

// TestMergeAssociativity checks the fold law Merge must uphold: applying the
// merged message to a base value matches sequentially applying newer after
// older, for every pair of message kinds this package produces.
func TestMergeAssociativity(t *testing.T) {
	a := DefaultAction{}
	key := []byte("k")

	bases := []Value{
		{Present: false},
		{Present: true, Data: []byte("hello")},
	}

	msgPairs := [][2]Message{
		{mustInsert(t, "abcdef"), mustUpsert(t, 1, "XY")},
		{NewDelete(), mustUpsert(t, 0, "Z")},
		{mustUpsert(t, 0, "ab"), mustUpsert(t, 1, "cd")},
		{mustUpsert(t, 0, "ab"), NewDelete()},
		{mustInsert(t, "x"), mustInsert(t, "y")},
		{NewNoop(block.PreferenceFast), mustUpsert(t, 0, "ab")},
		{mustUpsert(t, 0, "ab"), NewNoop(block.PreferenceFastest)},
	}

	for _, base := range bases {
		for _, pair := range msgPairs {
			older, newer := pair[0], pair[1]

			sequential := base
			a.Apply(key, older, &sequential)
			a.Apply(key, newer, &sequential)

			merged := a.Merge(key, older, newer)
			viaMerge := base
			a.Apply(key, merged, &viaMerge)

			assert.Equal(t, sequential, viaMerge, "base=%+v older=%v newer=%v", base, older.Kind, newer.Kind)
		}
	}
}

func mustInsert(t *testing.T, s string) Message {
	t.Helper()
	m, err := NewInsert([]byte(s), block.PreferenceNone, 4096)
	require.NoError(t, err)
	return m
}

func mustUpsert(t *testing.T, offset uint32, s string) Message {
	t.Helper()
	m, err := NewUpsert(offset, []byte(s), block.PreferenceNone, 4096)
	require.NoError(t, err)
	return m
}
