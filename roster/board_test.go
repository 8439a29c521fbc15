/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNames(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "Ada", []string{"Ada"}},
		{"mixed delimiters", "Ada, Bob;Cy\nDee", []string{"Ada", "Bob", "Cy", "Dee"}},
		{"runs of delimiters", "Ada,,;\n\nBob", []string{"Ada", "Bob"}},
		{"whitespace only entries", " ,  ; \n", nil},
		{"inner spaces kept", "  Mary Ann  ,Jo", []string{"Mary Ann", "Jo"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNames(tt.in))
		})
	}
}

func TestPoolSetSemantics(t *testing.T) {
	var p Pool

	assert.Equal(t, 3, p.Add("a", "b", "c"))
	assert.Equal(t, 1, p.Add("b", "d", "a"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Names())
	assert.True(t, p.Contains("d"))

	name, ok := p.RemoveAt(1)
	require.True(t, ok)
	assert.Equal(t, "b", name)
	assert.False(t, p.Contains("b"))

	_, ok = p.RemoveAt(10)
	assert.False(t, ok)

	assert.True(t, p.Remove("a"))
	assert.False(t, p.Remove("a"))
	assert.Equal(t, []string{"c", "d"}, p.Names())

	// removed names may be added again
	assert.Equal(t, 1, p.Add("b"))
	assert.Equal(t, 3, p.Len())

	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 1, p.Add("a"))
}

func newBoard(t *testing.T, text string) *Board {
	t.Helper()

	b := &Board{}
	b.AddNames(text)
	return b
}

func TestBoardCreateGroups(t *testing.T) {
	b := newBoard(t, "a,b,c,d,e,f,g")

	opts := b.Suggestions()
	require.NotEmpty(t, opts)
	b.CreateGroups(opts[0])

	require.Len(t, b.Groups, 2)
	assert.Equal(t, Group{ID: 0, Title: "Group 1", Members: []string{}, Capacity: 4}, b.Groups[0])
	assert.Equal(t, 3, b.Groups[1].Capacity)
	assert.Equal(t, "Group 2 (0/3)", b.DisplayTitle(1))
}

func TestBoardAssignLifecycle(t *testing.T) {
	b := newBoard(t, "a,b,c,d")
	b.CreateGroups(Suggest(4)[0])
	require.Len(t, b.Groups, 2)

	require.NoError(t, b.CanSpin(0))
	require.NoError(t, b.Assign(0, "c"))
	require.NoError(t, b.Assign(0, "a"))

	assert.Equal(t, []string{"c", "a"}, b.Groups[0].Members)
	assert.Equal(t, []string{"b", "d"}, b.Pool.Names())
	assert.Equal(t, []Assignment{{Group: 0, Name: "a"}, {Group: 0, Name: "c"}}, b.History)

	assert.ErrorIs(t, b.CanSpin(0), ErrGroupFull)
	assert.ErrorIs(t, b.Assign(0, "b"), ErrGroupFull)
	assert.Equal(t, []string{"b", "d"}, b.Pool.Names())

	assert.ErrorIs(t, b.Assign(1, "zed"), ErrNotInPool)
	assert.ErrorIs(t, b.CanSpin(7), ErrNoSuchGroup)
	assert.ErrorIs(t, b.Assign(-1, "b"), ErrNoSuchGroup)

	require.True(t, b.RemoveMember(0, 0))
	assert.Equal(t, []string{"a"}, b.Groups[0].Members)
	assert.Equal(t, []string{"b", "d", "c"}, b.Pool.Names())
	assert.False(t, b.RemoveMember(0, 5))
	assert.False(t, b.RemoveMember(3, 0))

	require.NoError(t, b.Assign(1, "b"))
	require.NoError(t, b.Assign(1, "d"))
	require.NoError(t, b.Assign(0, "c"))
	assert.ErrorIs(t, b.CanSpin(0), ErrEmptyPool)
}

func TestBoardTitles(t *testing.T) {
	b := newBoard(t, "a,b,c,d")
	b.CreateGroups(Suggest(4)[0])
	require.NoError(t, b.Assign(1, "a"))

	assert.Equal(t, "Group 2 (1/2)", b.DisplayTitle(1))

	require.True(t, b.Rename(1, "Blue team"))
	assert.Equal(t, "Blue team", b.DisplayTitle(1))

	require.True(t, b.Rename(1, ""))
	assert.Equal(t, "Group 2 (1/2)", b.DisplayTitle(1))

	assert.False(t, b.Rename(9, "nope"))
	assert.Equal(t, "", b.DisplayTitle(9))

	// new groups discard custom titles
	b.Rename(0, "Red")
	b.CreateGroups(Suggest(4)[0])
	assert.Equal(t, "Group 1 (0/2)", b.DisplayTitle(0))
}

func TestBoardClear(t *testing.T) {
	b := newBoard(t, "a,b,c,d")
	b.CreateGroups(Suggest(4)[0])
	require.NoError(t, b.Assign(0, "a"))
	b.Rename(1, "Custom")

	b.Clear()
	assert.Equal(t, 0, b.Pool.Len())
	assert.Empty(t, b.Groups)
	assert.Empty(t, b.History)
	assert.Empty(t, b.Suggestions())
	assert.Equal(t, "", b.DisplayTitle(0))

	// a fresh board after clearing carries nothing over
	b.AddNames("w,x,y,z")
	b.CreateGroups(Suggest(4)[0])
	assert.Empty(t, b.History)
	assert.Equal(t, "Group 2 (0/2)", b.DisplayTitle(1))
}

func TestBoardClone(t *testing.T) {
	b := newBoard(t, "a,b,c,d")
	b.CreateGroups(Suggest(4)[0])
	require.NoError(t, b.Assign(0, "a"))
	b.Rename(1, "Custom")

	c := b.Clone()
	require.NoError(t, b.Assign(0, "b"))
	b.Rename(1, "Changed")

	assert.Equal(t, []string{"a"}, c.Groups[0].Members)
	assert.Equal(t, []string{"b", "c", "d"}, c.Pool.Names())
	assert.Equal(t, "Custom", c.DisplayTitle(1))
	assert.Len(t, c.History, 1)

	require.NoError(t, c.Assign(1, "c"))
	assert.True(t, b.Pool.Contains("c"))
}
