// Package tui is a terminal client for the game, driving the same
// controller as the web pages.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bollywoodle/internal/game"
	"bollywoodle/internal/models"
	"bollywoodle/internal/service"
)

const (
	suggestionLimit = 5
	frameInterval   = 100 * time.Millisecond
)

type startedMsg struct{ err error }

type changedMsg struct{}

type closedMsg struct{}

type secondMsg time.Time

type frameMsg time.Time

// Model is the Bubble Tea model for one game
type Model struct {
	ctx     context.Context
	ctrl    *game.Controller
	changes <-chan struct{}
	cancel  func()

	view        game.View
	input       textinput.Model
	suggestions []models.SongTitle
	selected    int
	status      *game.Notice
	quitting    bool
}

// New creates a model over ctrl. The controller is started by Init.
func New(ctx context.Context, ctrl *game.Controller) Model {
	changes, cancel := ctrl.Subscribe()

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "type a song title"
	input.CharLimit = 100
	input.Focus()

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		changes: changes,
		cancel:  cancel,
		view:    ctrl.View(),
		input:   input,
	}
}

// Init starts the first game and the timers
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.start(), waitForChange(m.changes), everySecond(), nextFrame(), textinput.Blink)
}

func (m Model) start() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return startedMsg{err: ctrl.Start(ctx)}
	}
}

// tick advances the countdown. A restart that fails to load reports back
// like a start does.
func (m Model) tick() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		if err := ctrl.Tick(ctx); err != nil {
			return startedMsg{err: err}
		}
		return nil
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return closedMsg{}
		}
		return changedMsg{}
	}
}

func everySecond() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return secondMsg(t) })
}

func nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		m.status = nil
		if msg.err != nil {
			m.status = &game.Notice{Kind: game.NoticeIncorrect, Title: "Could not load a song", Message: msg.err.Error()}
		}
		m.refresh()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case closedMsg:
		return m, nil

	case secondMsg:
		return m, tea.Batch(m.tick(), everySecond())

	case frameMsg:
		m.refresh()
		return m, nextFrame()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m.quit()
	}

	switch {
	case m.view.Terminal():
		switch msg.String() {
		case "q":
			return m.quit()
		case " ", "p":
			m.ctrl.ToggleCountdown()
		case "n", "enter":
			return m, m.start()
		}

	case m.view.State == game.StateError:
		switch msg.String() {
		case "q":
			return m.quit()
		case "r", "enter":
			return m, m.start()
		}

	case m.view.State == game.StateReady || m.view.State == game.StateActive:
		cmd := m.handlePlayKey(msg)
		m.refresh()
		return m, cmd
	}

	m.refresh()
	return m, nil
}

// handlePlayKey runs game keys and passes everything else to the input
func (m *Model) handlePlayKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		if err := m.ctrl.TogglePlay(); err != nil {
			m.status = &game.Notice{Kind: game.NoticeIncorrect, Title: "Playback unavailable", Message: "You can still guess."}
		}
		return nil
	case "ctrl+s":
		m.ctrl.Skip()
		return nil
	case "ctrl+r":
		m.ctrl.Reveal()
		return nil
	case "up":
		if m.selected > 0 {
			m.selected--
		}
		return nil
	case "down":
		if m.selected < len(m.suggestions)-1 {
			m.selected++
		}
		return nil
	case "enter":
		if len(m.suggestions) == 0 {
			return nil
		}
		if m.ctrl.SubmitGuess(m.suggestions[m.selected].Title) {
			m.input.SetValue("")
		}
		return nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.selected = 0
	}
	return cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

func (m *Model) refresh() {
	m.view = m.ctrl.View()
	if notices := m.ctrl.DrainNotices(); len(notices) > 0 {
		last := notices[len(notices)-1]
		m.status = &last
	}

	m.suggestions = service.SuggestTitles(m.ctrl.Titles(), m.input.Value(), suggestionLimit)
	if m.selected >= len(m.suggestions) {
		m.selected = 0
	}
}

// View renders the screen
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	v := m.view

	var b strings.Builder
	heading := "Bollywoodle"
	if v.Mode == "daily" {
		heading += " - Song of the Day"
	}
	b.WriteString(titleStyle.Render(heading) + "\n")

	switch v.State {
	case game.StateLoading:
		b.WriteString(subtitleStyle.Render("Loading a song...") + "\n")
		return b.String()
	case game.StateError:
		b.WriteString(errorStyle.Render("Could not load a song: "+v.Error) + "\n")
		if m.status != nil && m.status.Message != v.Error {
			b.WriteString(subtitleStyle.Render(m.status.Message) + "\n")
		}
		b.WriteString(helpStyle.Render("r retry · q quit"))
		return b.String()
	}

	b.WriteString(renderAttempts(v) + "\n")
	b.WriteString(renderTimeline(v) + "\n")

	if v.Terminal() {
		b.WriteString(renderResult(v) + "\n")
		b.WriteString(helpStyle.Render("space pause countdown · n next song · q quit"))
		return b.String()
	}

	b.WriteString(m.renderPlayback() + "\n")
	b.WriteString(inputStyle.Render(m.input.View()) + "\n")
	for i, s := range m.suggestions {
		line := "  " + s.Label()
		if i == m.selected {
			line = selectedStyle.Render("› " + s.Label())
		}
		b.WriteString(line + "\n")
	}
	if m.status != nil {
		style, ok := statusStyles[string(m.status.Kind)]
		if !ok {
			style = subtitleStyle
		}
		b.WriteString(style.Render(m.status.Title+" "+m.status.Message) + "\n")
	}
	b.WriteString(helpStyle.Render(fmt.Sprintf("tab play · enter guess · ctrl+s %s · ctrl+r give up · esc quit", v.SkipLabel())))
	return b.String()
}

func (m Model) renderPlayback() string {
	p := m.view.Playback
	switch {
	case !p.Available:
		return subtitleStyle.Render("playback unavailable")
	case p.Playing:
		return playedStyle.Render("▶ playing")
	default:
		return subtitleStyle.Render("■ stopped")
	}
}

func renderAttempts(v game.View) string {
	slots := v.MaxAttempts
	if slots <= 0 {
		slots = len(v.Attempts)
	}

	rows := make([]string, 0, slots)
	for i := 0; i < slots; i++ {
		if i >= len(v.Attempts) {
			rows = append(rows, slotStyle.Render(" "))
			continue
		}
		a := v.Attempts[i]
		switch {
		case a.Kind == game.KindSkip:
			rows = append(rows, skippedStyle.Render("SKIPPED"))
		case a.Correct:
			rows = append(rows, correctStyle.Render("✓ "+a.Value))
		default:
			rows = append(rows, incorrectStyle.Render("✗ "+a.Value))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderTimeline(v game.View) string {
	var bar strings.Builder
	for _, seg := range v.Timeline {
		width := int(seg.Width*timelineWidth + 0.5)
		if width < 1 {
			width = 1
		}
		filled := int(seg.Fill*float64(width) + 0.5)
		style := lockedStyle
		if seg.Unlocked {
			style = unlockedStyle
		}
		bar.WriteString(playedStyle.Render(strings.Repeat("━", filled)))
		bar.WriteString(style.Render(strings.Repeat("━", width-filled)))
	}
	clock := fmt.Sprintf("%s / %s", clockLabel(v.Playback.Position), clockLabel(float64(v.TotalSeconds)))
	return bar.String() + "\n" + subtitleStyle.Render(clock)
}

func renderResult(v game.View) string {
	heading := "Better luck next time"
	if v.Outcome == game.OutcomeWon {
		heading = "You got it!"
	}

	lines := []string{titleStyle.Render(heading)}
	if v.Answer != nil {
		lines = append(lines, v.Answer.Title+" by "+v.Answer.Artist)
	}
	if v.Message != "" {
		lines = append(lines, subtitleStyle.Render(v.Message))
	}
	countdown := "Next song in " + v.Countdown.Label()
	if v.Countdown.Paused {
		countdown += " (paused)"
	}
	lines = append(lines, countdown)
	return resultStyle.Render(strings.Join(lines, "\n"))
}

func clockLabel(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
