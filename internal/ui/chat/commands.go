// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/util"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const helpText = "/attach <path>  /detach <n>  /files  /clear-files  /model [id]  " +
	"/set <temperature|max_tokens|top_p|reasoning> <value>  /models  /quit"

// parseCommand splits a slash command line. Only the first line counts.
func parseCommand(input string) (string, []string, bool) {
	line := strings.TrimSpace(input)
	if !strings.HasPrefix(line, "/") || strings.Contains(line, "\n") {
		return "", nil, false
	}
	fields := strings.Fields(line)
	return strings.ToLower(fields[0]), fields[1:], true
}

// runCommand executes one slash command.
func (m Model) runCommand(cmd string, args []string) (tea.Model, tea.Cmd) {
	switch cmd {
	case "/attach":
		return m.cmdAttach(args)

	case "/detach":
		if len(args) != 1 {
			return m.setNotice("usage: /detach <n>", true)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return m.setNotice("usage: /detach <n>", true)
		}
		f, err := m.stager.Remove(n - 1)
		if err != nil {
			return m.setNotice(err.Error(), true)
		}
		m.layout()
		return m.setNotice("Removed "+f.Name, false)

	case "/files":
		files := m.stager.Files()
		if len(files) == 0 {
			return m.setNotice("No files staged", false)
		}
		parts := make([]string, len(files))
		for i, f := range files {
			parts[i] = fmt.Sprintf("%d. %s (%s)", i+1, f.Name, util.FormatBytes(f.Size()))
		}
		return m.setNotice(strings.Join(parts, "  "), false)

	case "/clear-files":
		m.stager.Clear()
		m.layout()
		return m.setNotice("Attachments cleared", false)

	case "/model":
		if len(args) == 0 {
			current := m.settings.RunSettings().Model
			if current == "" {
				return m.setNotice("No model selected", false)
			}
			return m.setNotice("Model: "+current, false)
		}
		m.selectModel(args[0])
		return m.setNotice("Model set to "+args[0], false)

	case "/set":
		if len(args) != 2 {
			return m.setNotice("usage: /set <key> <value>", true)
		}
		if err := m.applySetting(args[0], args[1]); err != nil {
			return m.setNotice(err.Error(), true)
		}
		return m.setNotice(fmt.Sprintf("%s = %s", args[0], args[1]), false)

	case "/models":
		if m.showModels {
			m.closeModels()
			return m, nil
		}
		return m, m.openModels()

	case "/help":
		return m.setNotice(helpText, false)

	case "/quit", "/exit":
		m.Shutdown()
		m.quitting = true
		return m, tea.Quit

	default:
		return m.setNotice("Unknown command "+cmd+" (try /help)", true)
	}
}

func (m Model) cmdAttach(paths []string) (tea.Model, tea.Cmd) {
	if len(paths) == 0 {
		return m.setNotice("usage: /attach <path>...", true)
	}
	var files []attach.File
	for _, p := range paths {
		f, err := attach.LoadFile(expandHome(p))
		if err != nil {
			return m.setNotice(err.Error(), true)
		}
		files = append(files, f)
	}
	m.stager.Add(files...)
	m.layout()
	return m.setNotice(attachedNotice(files), false)
}

// applySetting validates and stores one generation parameter.
func (m Model) applySetting(name, value string) error {
	var err error
	m.settings.Update(func(s *model.RunSettings) {
		err = s.Set(name, value)
	})
	return err
}

// =============================================================================
// PASTE HANDLING
// =============================================================================

// isPaste reports whether msg carries more than one rune at once. Without
// bracketed paste the terminal delivers a paste as a single runes message.
func isPaste(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyRunes && len(msg.Runes) > 1
}

// pastedFiles loads a paste whose every line names an existing file.
// Terminals paste dropped files as (possibly quoted) paths.
func pastedFiles(text string) ([]attach.File, bool) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, false
	}

	files := make([]attach.File, 0, len(lines))
	for _, line := range lines {
		p := expandHome(strings.Trim(strings.TrimSpace(line), `"'`))
		if p == "" {
			return nil, false
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return nil, false
		}
		f, err := attach.LoadFile(p)
		if err != nil {
			return nil, false
		}
		files = append(files, f)
	}
	return files, true
}

func attachedNotice(files []attach.File) string {
	if len(files) == 1 {
		return "Attached " + files[0].Name
	}
	return fmt.Sprintf("Attached %d files", len(files))
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return home + p[1:]
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
