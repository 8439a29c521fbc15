/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package roster

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyPool   = errors.New("no names left to pick from")
	ErrNoSuchGroup = errors.New("no such group")
	ErrGroupFull   = errors.New("group is already full")
	ErrNotInPool   = errors.New("name is not in the pool")
)

var nameDelimiters = regexp.MustCompile(`[\n,;]+`)

// ParseNames splits free text on newlines, commas and semicolons,
// trimming each entry and dropping empty ones.
func ParseNames(text string) []string {
	var names []string
	for _, part := range nameDelimiters.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		names = append(names, part)
	}
	return names
}

// Pool is an ordered set of unassigned names.
type Pool struct {
	names []string
	index map[string]struct{}
}

// Add appends each name not already present and reports how many were added.
func (p *Pool) Add(names ...string) int {
	if p.index == nil {
		p.index = make(map[string]struct{})
	}

	added := 0
	for _, n := range names {
		if _, ok := p.index[n]; ok {
			continue
		}
		p.index[n] = struct{}{}
		p.names = append(p.names, n)
		added++
	}
	return added
}

// RemoveAt drops the name at position i.
func (p *Pool) RemoveAt(i int) (string, bool) {
	if i < 0 || i >= len(p.names) {
		return "", false
	}
	name := p.names[i]
	p.names = append(p.names[:i], p.names[i+1:]...)
	delete(p.index, name)
	return name, true
}

// Remove drops name if present.
func (p *Pool) Remove(name string) bool {
	for i, n := range p.names {
		if n == name {
			p.RemoveAt(i)
			return true
		}
	}
	return false
}

func (p *Pool) Contains(name string) bool {
	_, ok := p.index[name]
	return ok
}

func (p *Pool) Len() int {
	return len(p.names)
}

// Names returns a copy of the pool in insertion order.
func (p *Pool) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

func (p *Pool) Clear() {
	p.names = nil
	p.index = nil
}

// Group holds the names assigned to one group. Members never exceeds Capacity.
type Group struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Members  []string `json:"members"`
	Capacity int      `json:"capacity"`
}

func (g Group) Full() bool {
	return len(g.Members) >= g.Capacity
}

// Assignment records one name placed into a group.
type Assignment struct {
	Group int    `json:"group"`
	Name  string `json:"name"`
}

// Board is the caller-side state of a spinner: the unassigned pool,
// the groups and the assignment history. It is not safe for concurrent use.
type Board struct {
	Pool    Pool
	Groups  []Group
	History []Assignment

	titles map[int]string
}

// AddNames parses text and adds the resulting names to the pool.
func (b *Board) AddNames(text string) int {
	return b.Pool.Add(ParseNames(text)...)
}

func (b *Board) RemoveName(i int) bool {
	_, ok := b.Pool.RemoveAt(i)
	return ok
}

// Clear empties the pool and discards every group. History and custom titles
// go with the groups since both are keyed by group index.
func (b *Board) Clear() {
	b.Pool.Clear()
	b.Groups = nil
	b.History = nil
	b.titles = nil
}

// Suggestions returns the split options for the current pool size.
func (b *Board) Suggestions(opts ...SuggestOption) []Option {
	return Suggest(b.Pool.Len(), opts...)
}

// CreateGroups replaces the current groups with empty ones sized by opt.
func (b *Board) CreateGroups(opt Option) {
	caps := opt.Capacities()
	groups := make([]Group, 0, len(caps))
	for i, c := range caps {
		groups = append(groups, Group{
			ID:       i,
			Title:    fmt.Sprintf("Group %d", i+1),
			Members:  []string{},
			Capacity: c,
		})
	}
	b.Groups = groups
	b.titles = nil
}

// CanSpin reports whether a pick may be made into group gi.
func (b *Board) CanSpin(gi int) error {
	if b.Pool.Len() == 0 {
		return ErrEmptyPool
	}
	if gi < 0 || gi >= len(b.Groups) {
		return ErrNoSuchGroup
	}
	if b.Groups[gi].Full() {
		return ErrGroupFull
	}
	return nil
}

// Assign moves name from the pool into group gi. Nothing changes on error.
func (b *Board) Assign(gi int, name string) error {
	if gi < 0 || gi >= len(b.Groups) {
		return ErrNoSuchGroup
	}
	if b.Groups[gi].Full() {
		return ErrGroupFull
	}
	if !b.Pool.Remove(name) {
		return ErrNotInPool
	}

	b.Groups[gi].Members = append(b.Groups[gi].Members, name)
	b.History = append([]Assignment{{Group: gi, Name: name}}, b.History...)
	return nil
}

// RemoveMember returns member mi of group gi to the end of the pool.
func (b *Board) RemoveMember(gi, mi int) bool {
	if gi < 0 || gi >= len(b.Groups) {
		return false
	}
	g := &b.Groups[gi]
	if mi < 0 || mi >= len(g.Members) {
		return false
	}

	name := g.Members[mi]
	g.Members = append(g.Members[:mi], g.Members[mi+1:]...)
	b.Pool.Add(name)
	return true
}

// Rename sets a custom title for group gi. An empty title restores the default.
func (b *Board) Rename(gi int, title string) bool {
	if gi < 0 || gi >= len(b.Groups) {
		return false
	}
	if b.titles == nil {
		b.titles = make(map[int]string)
	}
	if title == "" {
		delete(b.titles, gi)
		return true
	}
	b.titles[gi] = title
	return true
}

// DisplayTitle is the custom title of group gi, or its default title with
// the current fill level.
func (b *Board) DisplayTitle(gi int) string {
	if gi < 0 || gi >= len(b.Groups) {
		return ""
	}
	if t, ok := b.titles[gi]; ok {
		return t
	}
	g := b.Groups[gi]
	return fmt.Sprintf("%s (%d/%d)", g.Title, len(g.Members), g.Capacity)
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	c := &Board{}
	c.Pool.Add(b.Pool.names...)

	c.Groups = make([]Group, len(b.Groups))
	for i, g := range b.Groups {
		g.Members = append([]string{}, g.Members...)
		c.Groups[i] = g
	}

	c.History = append([]Assignment(nil), b.History...)

	if b.titles != nil {
		c.titles = make(map[int]string, len(b.titles))
		for k, v := range b.titles {
			c.titles[k] = v
		}
	}
	return c
}
