/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package roster

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultMinSize is the smallest group Suggest will offer unless overridden.
const DefaultMinSize = 2

// Sizes describes how a total splits into big and small groups.
// When the split is exact, Big equals Small and BigCount is zero.
type Sizes struct {
	Small      int `json:"small"`
	Big        int `json:"big"`
	BigCount   int `json:"big_count"`
	SmallCount int `json:"small_count"`
}

// Option is a single way of splitting the pool into near-equal groups.
type Option struct {
	GroupCount int    `json:"group_count"`
	Sizes      Sizes  `json:"sizes"`
	Exact      bool   `json:"exact"`
	Label      string `json:"label"`
}

// Score is zero for perfectly equal splits and one otherwise.
func (o Option) Score() int {
	return o.Sizes.Big - o.Sizes.Small
}

// Total is the number of names the option accounts for.
func (o Option) Total() int {
	return o.Sizes.BigCount*o.Sizes.Big + o.Sizes.SmallCount*o.Sizes.Small
}

// Capacities lists the capacity of each group, big groups first.
func (o Option) Capacities() []int {
	caps := make([]int, 0, o.GroupCount)
	for i := 0; i < o.GroupCount; i++ {
		if i < o.Sizes.BigCount {
			caps = append(caps, o.Sizes.Big)
		} else {
			caps = append(caps, o.Sizes.Small)
		}
	}
	return caps
}

type suggestConfig struct {
	minSize int
	maxSize int
}

// SuggestOption adjusts the bounds used by Suggest.
type SuggestOption func(*suggestConfig)

// WithMinSize sets the smallest allowed group. Values below 1 disable the bound.
func WithMinSize(n int) SuggestOption {
	return func(c *suggestConfig) {
		c.minSize = n
	}
}

// WithMaxSize caps the big group size, small+1, of every candidate. Values
// below 1 mean unbounded.
func WithMaxSize(n int) SuggestOption {
	return func(c *suggestConfig) {
		c.maxSize = n
	}
}

func pluralGroups(count, size int) string {
	if count == 1 {
		return fmt.Sprintf("1 group of %d", size)
	}
	return fmt.Sprintf("%d groups of %d", count, size)
}

func label(s Sizes) string {
	parts := make([]string, 0, 2)
	if s.BigCount > 0 {
		parts = append(parts, pluralGroups(s.BigCount, s.Big))
	}
	if s.SmallCount > 0 {
		parts = append(parts, pluralGroups(s.SmallCount, s.Small))
	}
	return strings.Join(parts, " and ")
}

// Suggest enumerates the ways total names can be split into two or more
// groups whose sizes differ by at most one.
//
// If any exact split exists only exact splits are returned. Results are
// ordered by score, then by group count. A total below 2 yields nil.
func Suggest(total int, opts ...SuggestOption) []Option {
	cfg := suggestConfig{minSize: DefaultMinSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	if total < 2 {
		return nil
	}

	var all []Option
	seen := make(map[string]struct{})
	hasExact := false

	for k := 2; k <= total; k++ {
		small := total / k
		rem := total % k

		sizes := Sizes{
			Small:      small,
			Big:        small,
			SmallCount: k,
		}
		if rem > 0 {
			sizes.Big = small + 1
			sizes.BigCount = rem
			sizes.SmallCount = k - rem
		}

		if cfg.minSize > 0 && small < cfg.minSize {
			continue
		}
		// The bound applies to small+1 even for exact splits.
		if cfg.maxSize > 0 && small+1 > cfg.maxSize {
			continue
		}

		l := label(sizes)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}

		exact := rem == 0
		if exact {
			hasExact = true
		}

		all = append(all, Option{
			GroupCount: k,
			Sizes:      sizes,
			Exact:      exact,
			Label:      l,
		})
	}

	if hasExact {
		filtered := all[:0]
		for _, o := range all {
			if o.Exact {
				filtered = append(filtered, o)
			}
		}
		all = filtered
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score() != all[j].Score() {
			return all[i].Score() < all[j].Score()
		}
		return all[i].GroupCount < all[j].GroupCount
	})

	return all
}
