/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package tui is a terminal front end for the name spinner.
package tui

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Seednode/spinbox/roster"
	"github.com/Seednode/spinbox/wheel"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

type focus int

const (
	focusInput focus = iota
	focusSplits
	focusGroups
)

// frameMsg advances a running spin.
type frameMsg time.Time

// Options configures a Model.
type Options struct {
	Duration    time.Duration
	FrameRate   int
	Source      wheel.Source
	SuggestOpts []roster.SuggestOption
	Logger      *log.Logger
}

// Model is the bubbletea model driving a single spinner board.
type Model struct {
	board       *roster.Board
	suggestOpts []roster.SuggestOption
	input       textinput.Model
	focus       focus

	splitCursor  int
	groupCursor  int
	memberCursor int

	src      wheel.Source
	duration time.Duration
	frame    time.Duration
	logger   *log.Logger

	angle     float64
	spinning  bool
	anim      wheel.Animation
	spinStart time.Time
	spinNames []string
	spinGroup int

	lastPick string
	notice   string
}

func New(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Type names, separated by commas, and press Enter"
	ti.CharLimit = 1024
	ti.Focus()

	m := Model{
		board:       &roster.Board{},
		suggestOpts: opts.SuggestOpts,
		input:       ti,
		src:         opts.Source,
		duration:    opts.Duration,
		frame:       time.Second / wheel.DefaultFrameRate,
		logger:      opts.Logger,
	}
	if m.src == nil {
		m.src = wheel.NewSource()
	}
	if m.duration <= 0 {
		m.duration = wheel.DefaultDuration
	}
	if opts.FrameRate > 0 {
		m.frame = time.Second / time.Duration(opts.FrameRate)
	}
	if m.logger == nil {
		m.logger = log.New(io.Discard)
	}
	return m
}

// Board exposes the underlying state, mostly for tests.
func (m Model) Board() *roster.Board {
	return m.board
}

func (m Model) Spinning() bool {
	return m.spinning
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		return m.advance(time.Time(msg))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.cycleFocus()
			return m, nil
		}

		if m.focus == focusInput {
			if msg.String() == "enter" {
				m.addNames()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		return m.handleKey(msg.String())
	}

	return m, nil
}

func (m *Model) cycleFocus() {
	m.focus = (m.focus + 1) % 3
	if m.focus == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) addNames() {
	if m.spinning {
		m.notice = "Wait for the wheel to stop."
		return
	}
	added := m.board.AddNames(m.input.Value())
	m.input.SetValue("")
	m.notice = fmt.Sprintf("Added %d name(s).", added)
	m.splitCursor = 0
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch key {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "left", "h":
		m.moveMember(-1)
	case "right", "l":
		m.moveMember(1)
	case "c":
		m.createGroups()
	case "x":
		m.removeMember()
	case "s":
		if m.focus == focusGroups {
			return m.startSpin()
		}
	case "enter":
		switch m.focus {
		case focusSplits:
			m.createGroups()
		case focusGroups:
			return m.startSpin()
		}
	}

	return m, nil
}

func (m *Model) move(delta int) {
	switch m.focus {
	case focusSplits:
		n := len(m.board.Suggestions(m.suggestOpts...))
		m.splitCursor = clampIndex(m.splitCursor+delta, n)
	case focusGroups:
		m.groupCursor = clampIndex(m.groupCursor+delta, len(m.board.Groups))
		m.memberCursor = 0
	}
}

func (m *Model) moveMember(delta int) {
	if m.focus != focusGroups || m.groupCursor >= len(m.board.Groups) {
		return
	}
	n := len(m.board.Groups[m.groupCursor].Members)
	m.memberCursor = clampIndex(m.memberCursor+delta, n)
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m *Model) createGroups() {
	if m.spinning {
		m.notice = "Wait for the wheel to stop."
		return
	}
	opts := m.board.Suggestions(m.suggestOpts...)
	if m.splitCursor >= len(opts) {
		m.notice = "Add at least 2 names to see group options."
		return
	}
	opt := opts[m.splitCursor]
	m.board.CreateGroups(opt)
	m.groupCursor, m.memberCursor = 0, 0
	m.notice = "Created " + opt.Label + "."
	m.logger.Debug("created groups", "split", opt.Label)
}

func (m *Model) removeMember() {
	if m.spinning || m.focus != focusGroups {
		return
	}
	if m.board.RemoveMember(m.groupCursor, m.memberCursor) {
		m.memberCursor = clampIndex(m.memberCursor, len(m.board.Groups[m.groupCursor].Members))
	}
}

// startSpin is a no-op while another spin is running.
func (m Model) startSpin() (tea.Model, tea.Cmd) {
	if m.spinning {
		return m, nil
	}

	if err := m.board.CanSpin(m.groupCursor); err != nil {
		switch {
		case errors.Is(err, roster.ErrEmptyPool):
			m.notice = "No names left to pick from."
		case errors.Is(err, roster.ErrGroupFull):
			m.notice = "That group is already full."
		default:
			m.notice = "Create groups first."
		}
		return m, nil
	}

	m.spinning = true
	m.spinNames = m.board.Pool.Names()
	m.spinGroup = m.groupCursor
	m.anim = wheel.NewAnimation(m.angle, wheel.ExtraTurns(m.src), m.duration)
	m.spinStart = time.Time{}
	m.lastPick = ""

	m.logger.Debug("spin started", "group", m.spinGroup, "names", len(m.spinNames))

	return m, m.tick()
}

func (m Model) advance(now time.Time) (tea.Model, tea.Cmd) {
	if !m.spinning {
		return m, nil
	}
	if m.spinStart.IsZero() {
		m.spinStart = now
	}

	elapsed := now.Sub(m.spinStart)
	m.angle = m.anim.Angle(elapsed)
	if !m.anim.Done(elapsed) {
		return m, m.tick()
	}

	res, _ := wheel.Resolve(m.spinNames, m.angle)
	m.angle = res.FinalAngle
	m.spinning = false
	m.lastPick = res.Item

	if err := m.board.Assign(m.spinGroup, res.Item); err != nil {
		m.logger.Warn("could not assign spin result", "name", res.Item, "err", err)
		m.notice = err.Error()
	}

	return m, nil
}
