/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/Seednode/spinbox/wheel"
	"github.com/charmbracelet/lipgloss"
)

// reelSize is how many segments are shown around the pointer.
const reelSize = 7

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4f46e5"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#059669"))
	mutedStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#64748b"))
	pointerStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e11d48"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// hueColor converts a segment hue to the same 70% saturation, 60% lightness
// color the browser draws.
func hueColor(h float64) lipgloss.Color {
	const s, l = 0.7, 0.6
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x",
		int(math.Round((r+m)*255)),
		int(math.Round((g+m)*255)),
		int(math.Round((b+m)*255)),
	))
}

func (m Model) wheelNames() []string {
	if m.spinning {
		return m.spinNames
	}
	return m.board.Pool.Names()
}

// reel renders the segments nearest the pointer, with the one under the
// pointer highlighted.
func (m Model) reel() string {
	names := m.wheelNames()
	if len(names) == 0 {
		return mutedStyle.Render("Add names →")
	}

	current := wheel.IndexAt(m.angle, len(names))
	half := reelSize / 2
	if len(names) < reelSize {
		half = len(names) / 2
	}

	var b strings.Builder
	for off := -half; off <= half; off++ {
		if len(names) < reelSize && off-(-half) >= len(names) {
			break
		}
		i := ((current+off)%len(names) + len(names)) % len(names)
		swatch := lipgloss.NewStyle().Foreground(hueColor(wheel.Hue(i))).Render("●")
		label := wheel.Label(names[i])
		if off == 0 {
			b.WriteString("▶ " + swatch + " " + pointerStyle.Render(label) + "\n")
		} else {
			b.WriteString("  " + swatch + " " + label + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) heading(f focus, text string) string {
	if m.focus == f {
		return focusStyle.Render("» " + text)
	}
	return headerStyle.Render("  " + text)
}

func (m Model) namesPanel() string {
	var b strings.Builder
	b.WriteString(m.heading(focusInput, fmt.Sprintf("1) Add Names (%d)", m.board.Pool.Len())) + "\n")
	b.WriteString(m.input.View() + "\n")

	names := m.board.Pool.Names()
	if len(names) == 0 {
		b.WriteString(mutedStyle.Render("No names added yet."))
	} else {
		b.WriteString(strings.Join(names, ", "))
	}
	return panelStyle.Render(b.String())
}

func (m Model) splitsPanel() string {
	var b strings.Builder
	b.WriteString(m.heading(focusSplits, "3) Choose Group Split") + "\n")

	opts := m.board.Suggestions(m.suggestOpts...)
	if len(opts) == 0 {
		b.WriteString(mutedStyle.Render("Add at least 2 names to see group options"))
	}
	for i, o := range opts {
		mark := "( )"
		if i == m.splitCursor {
			mark = "(•)"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", mark, o.Label))
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) groupsPanel() string {
	var b strings.Builder
	b.WriteString(m.heading(focusGroups, "Your Groups") + "\n")

	if len(m.board.Groups) == 0 {
		b.WriteString(mutedStyle.Render("Create groups to start assigning names"))
	}
	for gi, g := range m.board.Groups {
		cursor := "  "
		if gi == m.groupCursor {
			cursor = "→ "
		}
		b.WriteString(cursor + headerStyle.Render(m.board.DisplayTitle(gi)) + ": ")

		if len(g.Members) == 0 {
			b.WriteString(mutedStyle.Render("No members yet"))
		}
		for mi, name := range g.Members {
			if mi > 0 {
				b.WriteString(", ")
			}
			if gi == m.groupCursor && mi == m.memberCursor && m.focus == focusGroups {
				name = pointerStyle.Render(name)
			}
			b.WriteString(name)
		}
		b.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) status() string {
	switch {
	case m.spinning:
		return "Spinning…"
	case m.lastPick != "":
		return fmt.Sprintf("%s was picked! %d names remaining", m.lastPick, m.board.Pool.Len())
	case m.board.Pool.Len() == 0:
		return "Add names to start spinning"
	}
	return fmt.Sprintf("%d names remaining", m.board.Pool.Len())
}

func (m Model) View() string {
	wheelPanel := panelStyle.Render(headerStyle.Render("  2) Spin the Wheel") + "\n" + m.reel() + "\n" + mutedStyle.Render(m.status()))

	top := lipgloss.JoinHorizontal(lipgloss.Top, m.namesPanel(), wheelPanel, m.splitsPanel())

	var b strings.Builder
	b.WriteString(titleStyle.Render("Group Spinner") + "\n\n")
	b.WriteString(top + "\n")
	b.WriteString(m.groupsPanel() + "\n")
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice) + "\n")
	}
	b.WriteString(mutedStyle.Render("tab focus • ↑/↓ select • ←/→ member • c create groups • s spin • x remove member • esc quit"))
	return b.String()
}
