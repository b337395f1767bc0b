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
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"

	"github.com/binkynet/ShiftWorker/pkg/service/status"
)

// UI creates a Root model for every SSH session.
type UI struct {
	Hub      *status.Hub
	Switches Switches
}

// Handler grabs the terminal info of the session and passes it to a new model.
func (u UI) Handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := s.Pty()
	root := NewRoot(pty.Term, pty.Window.Width, pty.Window.Height, u.Hub, u.Switches)
	return root, []tea.ProgramOption{tea.WithAltScreen()}
}
