// SPDX-License-Identifier: MIT

// Package tui renders the spectrum bars in the terminal with Bubble
// Tea.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/mrcool7387/BarScreenSaver/internal/viz"
)

// barGlyphs are the eighth-block characters used for fractional bar
// heights, from empty to full.
var barGlyphs = []rune(" ▁▂▃▄▅▆▇█")

var (
	trackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Bold(true)

	clockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	advertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#CC3333")).
			Padding(0, 1).
			Bold(true)

	lostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CC8833")).
			Bold(true)
)

// SnapshotProvider hands out the most recent published snapshot.
type SnapshotProvider interface {
	Latest() *viz.Snapshot
}

type tickMsg time.Time

// VisualizerModel polls the snapshot provider at the configured update
// rate and renders bars, track line and clock.
type VisualizerModel struct {
	provider SnapshotProvider
	interval time.Duration
	mirror   bool

	width  int
	height int
	ready  bool
	snap   *viz.Snapshot

	quitKeys key.Binding
}

// NewVisualizer builds the model. updateRate is in frames per second.
func NewVisualizer(provider SnapshotProvider, updateRate int, mirror bool) VisualizerModel {
	if updateRate < 1 {
		updateRate = 30
	}
	return VisualizerModel{
		provider: provider,
		interval: time.Second / time.Duration(updateRate),
		mirror:   mirror,
		quitKeys: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc")),
	}
}

func (m VisualizerModel) Init() tea.Cmd {
	return m.tick()
}

func (m VisualizerModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m VisualizerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tickMsg:
		// Keep the last frame when the engine has not published a new
		// one yet.
		if snap := m.provider.Latest(); snap != nil {
			m.snap = snap
		}
		return m, m.tick()

	case tea.KeyMsg:
		if key.Matches(msg, m.quitKeys) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m VisualizerModel) View() string {
	if !m.ready {
		return "Starting visualizer..."
	}
	if m.snap == nil {
		return "Waiting for audio..."
	}

	var b strings.Builder
	b.WriteString(m.renderStatus())
	b.WriteByte('\n')
	b.WriteString(m.renderBars())
	return b.String()
}

// renderStatus builds the single header line: track, badges, clock.
func (m VisualizerModel) renderStatus() string {
	parts := make([]string, 0, 4)

	if track := m.snap.Track; !track.IsZero() {
		parts = append(parts, trackStyle.Render(track.Display()))
		if track.Advert {
			parts = append(parts, advertStyle.Render("AD"))
		}
	}
	if m.snap.DeviceLost {
		parts = append(parts, lostStyle.Render("no input device"))
	}
	if m.snap.ShowClock {
		parts = append(parts, clockStyle.Render(m.snap.Timestamp.Format("15:04:05")))
	}
	return strings.Join(parts, "  ")
}

// renderBars draws each bar as a colored column of block glyphs.
func (m VisualizerModel) renderBars() string {
	bars := m.snap.Bars
	if len(bars) == 0 {
		return ""
	}

	rows := m.height - 3
	if rows < 1 {
		rows = 1
	}
	barRows := rows
	if m.mirror {
		// The bars fill the top half, the reflection the bottom.
		barRows = rows / 2
		if barRows < 1 {
			barRows = 1
		}
	}
	colWidth := m.width / len(bars)
	if colWidth < 1 {
		colWidth = 1
	}

	start, startErr := colorful.Hex(m.snap.Gradient.StartHex)
	end, endErr := colorful.Hex(m.snap.Gradient.EndHex)
	gradientOK := startErr == nil && endErr == nil
	phase := m.snap.Gradient.Phase

	lines := make([]string, 0, 2*barRows)
	for row := range barRows {
		var line strings.Builder
		// Row 0 is the top of the display.
		cellTop := float64(barRows-row) / float64(barRows)
		cellBottom := float64(barRows-row-1) / float64(barRows)

		for i, v := range bars {
			glyph := glyphFor(v, cellBottom, cellTop)

			cell := strings.Repeat(string(glyph), colWidth)
			if gradientOK {
				color := barColor(start, end, phase, i, len(bars))
				cell = lipgloss.NewStyle().Foreground(lipgloss.Color(color.Hex())).Render(cell)
			}
			line.WriteString(cell)
		}
		lines = append(lines, line.String())
	}
	if m.mirror {
		// Reflect each column below the midline.
		for row := barRows - 1; row >= 0; row-- {
			lines = append(lines, lines[row])
		}
	}
	return strings.Join(lines, "\n")
}

// glyphFor picks the block glyph for a bar of height v within the cell
// spanning [bottom, top] of the display.
func glyphFor(v, bottom, top float64) rune {
	switch {
	case v >= top:
		return barGlyphs[len(barGlyphs)-1]
	case v <= bottom:
		return barGlyphs[0]
	default:
		// Round to the nearest glyph so a half-filled cell is not
		// truncated down by float error.
		frac := (v - bottom) / (top - bottom)
		idx := int(math.Round(frac * float64(len(barGlyphs)-1)))
		if idx >= len(barGlyphs) {
			idx = len(barGlyphs) - 1
		}
		return barGlyphs[idx]
	}
}

// barColor blends the gradient for bar i of n at the given phase,
// mirrored so the phase wrap has no seam.
func barColor(start, end colorful.Color, phase float64, i, n int) colorful.Color {
	pos := 0.0
	if n > 1 {
		pos = float64(i) / float64(n-1)
	}
	pos += phase
	pos -= float64(int(pos))
	if pos > 0.5 {
		pos = 1 - pos
	}
	return start.BlendLab(end, pos*2).Clamped()
}

// Run starts the Bubble Tea program in the alternate screen and blocks
// until the user quits.
func Run(provider SnapshotProvider, updateRate int, mirror bool) error {
	program := tea.NewProgram(
		NewVisualizer(provider, updateRate, mirror),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running visualizer: %w", err)
	}
	return nil
}
