package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/olivier-w/pulsecloud/internal/player"
	"github.com/olivier-w/pulsecloud/internal/scheduler"
)

// chromeLines is the number of rows around the scene: header, status, help.
const chromeLines = 3

// Playback is the controller surface the TUI drives.
type Playback interface {
	Toggle(ctx context.Context) error
	State() player.State
	Position() time.Duration
	Duration() time.Duration
	Close()
}

// Stepper advances the visual pipeline by one frame.
type Stepper interface {
	Step() scheduler.Frame
}

// Scene is the rendered point cloud.
type Scene interface {
	View() string
	Resize(width, height int)
}

// Model is the Bubbletea model for the visualizer.
type Model struct {
	playback Playback
	stepper  Stepper
	scene    Scene
	title    string
	fps      int

	width    int
	height   int
	frame    scheduler.Frame
	state    player.State
	elapsed  time.Duration
	duration time.Duration
	loading  bool
	prog     player.Progress
	err      error
	quitting bool

	spinner    spinner.Model
	bar        progress.Model
	progressCh <-chan player.Progress
}

// New creates a Model. progressCh, if non-nil, carries load progress from
// the controller (see ProgressReporter).
func New(p Playback, st Stepper, sc Scene, title string, fps int, progressCh <-chan player.Progress) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	bar := progress.New(
		progress.WithScaledGradient("#FF8C00", "#FF5F1F"),
		progress.WithoutPercentage(),
	)
	bar.Width = 40

	return Model{
		playback:   p,
		stepper:    st,
		scene:      sc,
		title:      title,
		fps:        fps,
		state:      p.State(),
		prog:       player.Progress{Fraction: -1},
		spinner:    s,
		bar:        bar,
		progressCh: progressCh,
	}
}

// ProgressReporter returns a callback that forwards progress to ch without
// blocking the loader; updates are dropped while the UI is behind.
func ProgressReporter(ch chan<- player.Progress) func(player.Progress) {
	return func(p player.Progress) {
		select {
		case ch <- p:
		default:
		}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		frameCmd(m.fps),
		m.spinner.Tick,
		waitForProgress(m.progressCh),
		tea.SetWindowTitle(windowTitle(m.title, m.state)),
	)
}

func waitForProgress(ch <-chan player.Progress) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(p)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isQuit(msg) {
			m.quitting = true
			m.playback.Close()
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		if msg.String() == " " {
			return m.toggle()
		}
		return m, nil

	case tea.MouseMsg:
		if isToggle(msg) {
			return m.toggle()
		}
		return m, nil

	case playResultMsg:
		m.loading = false
		m.err = msg.err
		m.state = m.playback.State()
		m.duration = m.playback.Duration()
		return m, tea.SetWindowTitle(windowTitle(m.title, m.state))

	case progressMsg:
		m.prog = player.Progress(msg)
		return m, waitForProgress(m.progressCh)

	case frameMsg:
		m.frame = m.stepper.Step()
		m.state = m.playback.State()
		m.elapsed = m.playback.Position()
		return m, frameCmd(m.fps)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scene.Resize(msg.Width, max(msg.Height-chromeLines, 1))
		m.bar.Width = min(max(msg.Width-30, 20), 60)
		return m, nil
	}

	return m, nil
}

// toggle starts or pauses playback off the UI goroutine. The first toggle
// loads the track; further toggles are ignored until that load resolves.
func (m Model) toggle() (Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	switch m.playback.State() {
	case player.Unloaded, player.Failed, player.Loading:
		m.loading = true
		m.err = nil
		m.prog = player.Progress{Phase: player.PhaseFetching, Fraction: -1}
	}
	p := m.playback
	return m, func() tea.Msg {
		return playResultMsg{err: p.Toggle(context.Background())}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := "  " + headerStyle.Render("pulsecloud") + "  " + titleStyle.Render(m.title)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, m.scene.View())
	lines = append(lines, "  "+m.statusLine())
	lines = append(lines, "  "+helpStyle.Render(helpText(m.state != player.Unloaded && m.state != player.Failed)))
	view := strings.Join(lines, "\n")

	if m.height > 0 {
		if pad := m.height - lipgloss.Height(view); pad > 0 {
			view += strings.Repeat("\n", pad)
		}
	}
	return view
}

func (m Model) statusLine() string {
	switch {
	case m.loading:
		label := "Loading..."
		if m.prog.Phase == player.PhaseDecoding {
			label = "Decoding..."
		}
		if m.prog.Fraction >= 0 && m.prog.Phase == player.PhaseFetching {
			return statusStyle.Render(label) + " " + m.bar.ViewAs(m.prog.Fraction) + fmt.Sprintf("  %.0f%%", m.prog.Fraction*100)
		}
		return m.spinner.View() + " " + statusStyle.Render(label)

	case m.err != nil:
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "  " + helpStyle.Render("space to retry")
	}

	icon := "■"
	switch m.state {
	case player.Playing:
		icon = "▶"
	case player.Paused:
		icon = "❚❚"
	}
	status := statusStyle.Render(fmt.Sprintf("%s  %s", icon, m.state))
	clock := timeStyle.Render(formatDuration(m.elapsed) + " / " + formatDuration(m.duration))

	b := m.frame.Bands
	meterWidth := 10
	if m.width > 0 {
		meterWidth = min(max((m.width-40)/3-4, 4), 20)
	}
	meters := strings.Join([]string{
		renderMeter("low", b.Low, meterWidth),
		renderMeter("mid", b.Mid, meterWidth),
		renderMeter("high", b.High, meterWidth),
	}, "  ")
	return status + "  " + clock + "  " + meters
}

func windowTitle(title string, state player.State) string {
	switch state {
	case player.Playing:
		return "▶ " + title + " — pulsecloud"
	case player.Paused:
		return "⏸ " + title + " — pulsecloud"
	}
	return title + " — pulsecloud"
}
