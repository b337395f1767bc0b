// Copyright 2023 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/binkynet/ShiftWorker/pkg/service/status"
)

const (
	refreshInterval = time.Millisecond * 200
	loadAvgInterval = time.Second * 2
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(14)
	onStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	faultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Switches gives access to simulated switch levels.
type Switches interface {
	InputLevels() byte
	SetInputLevels(levels byte)
}

type keyMap struct {
	Toggle key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Root is the model shown to every SSH session.
type Root struct {
	term     string
	width    int
	height   int
	loadAvg  string
	hub      *status.Hub
	switches Switches
	snap     status.Snapshot
	keys     keyMap
	help     help.Model
}

var _ tea.Model = Root{}

// NewRoot creates a model that shows the state published to the given hub.
// When switches is non-nil, the number keys toggle the simulated switches.
func NewRoot(term string, width, height int, hub *status.Hub, switches Switches) Root {
	keys := keyMap{
		Toggle: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8"),
			key.WithHelp("1-8", "toggle switch"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "disconnect"),
		),
	}
	keys.Toggle.SetEnabled(switches != nil)
	return Root{
		term:     term,
		width:    width,
		height:   height,
		hub:      hub,
		switches: switches,
		snap:     hub.Snapshot(),
		keys:     keys,
		help:     help.New(),
	}
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (r Root) Init() tea.Cmd {
	return tea.Batch(doRefresh(), doReloadCPULoadAvg())
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		r.snap = r.hub.Snapshot()
		return r, doRefresh()
	case loadAvgMsg:
		r.loadAvg = string(msg)
		return r, doReloadCPULoadAvg()
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
		r.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, r.keys.Quit):
			return r, tea.Quit
		case key.Matches(msg, r.keys.Toggle):
			r.toggle(int(msg.String()[0] - '1'))
		}
	}
	return r, nil
}

// toggle flips the level of the switch wired to the given bit.
func (r Root) toggle(bit int) {
	if r.switches == nil || bit < 0 || bit > 7 {
		return
	}
	r.switches.SetInputLevels(r.switches.InputLevels() ^ (0x80 >> uint(bit)))
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (r Root) View() string {
	var b strings.Builder
	b.WriteString(r.headerView())
	b.WriteString("\n\n")
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("Input", renderBits(r.snap.Input))
	row("Output", renderBits(r.snap.Output))
	row("Cycles", humanize.Comma(int64(r.snap.Sequence)))
	row("Rejected", humanize.Comma(int64(r.snap.Rejected)))
	row("Last change", formatTime(r.snap.LastChangeAt))
	row("Last sample", formatTime(r.snap.LastAcceptedAt))
	if r.snap.Fault != "" {
		row("Fault", faultStyle.Render(r.snap.Fault))
	}
	b.WriteString("\n")
	b.WriteString(r.help.View(r.keys))
	b.WriteString("\n")
	return b.String()
}

func (r Root) headerView() string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("ShiftWorker"),
		"  ",
		strings.TrimSpace(r.loadAvg),
	)
}

// renderBits renders a byte MSB first, one mark per bit.
func renderBits(v byte) string {
	marks := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		if v&(0x80>>uint(i)) != 0 {
			marks = append(marks, onStyle.Render("●"))
		} else {
			marks = append(marks, offStyle.Render("○"))
		}
	}
	return strings.Join(marks, " ") + fmt.Sprintf("  0x%02x", v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

type refreshMsg time.Time

func doRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

type loadAvgMsg string

func doReloadCPULoadAvg() tea.Cmd {
	return tea.Tick(loadAvgInterval, func(t time.Time) tea.Msg {
		if content, err := os.ReadFile("/proc/loadavg"); err != nil {
			return loadAvgMsg(err.Error())
		} else {
			return loadAvgMsg(string(content))
		}
	})
}
