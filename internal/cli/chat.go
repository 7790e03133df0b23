// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/config"
	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/request"
	"github.com/jeranaias/playground-tui/internal/stream"
	"github.com/jeranaias/playground-tui/internal/ui/styles"
	"github.com/jeranaias/playground-tui/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)
)

const chatHelp = `Commands during chat:
  /attach <path>...    stage files for the next message
  /files               list staged files
  /detach <n>          unstage file n
  /clear-files         unstage everything
  /model [id]          show or switch model
  /set <key> <value>   temperature, max_tokens, top_p, reasoning
  /models              list configured models
  /help                show commands
  /quit                exit (Ctrl+D also exits)

Ctrl+C cancels the reply being streamed.`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a line-oriented chat session",
	Long:  "Start a line-oriented chat session with input history.\n\n" + chatHelp,
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history, owner read/write only.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

func runChat(cmd *cobra.Command, args []string) error {
	// SIGINT cancels the streaming turn, not the session
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	c := newChatClient(rt.cfg, rt.cfgPath, rt.logger)
	defer c.close()
	c.watch(ctx)

	repl := &replSession{client: c, out: os.Stdout, errOut: os.Stderr}
	repl.printWelcome(ctx)

	input := NewChatCLI()
	defer input.Close()

	// Ctrl+C while a reply streams cancels that turn only
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if c.engine.Cancel() {
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		line, err := input.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or EOF
			fmt.Println()
			repl.printSummary()
			return nil
		}
		if !repl.handleLine(ctx, line) {
			repl.printSummary()
			return nil
		}
	}
}

// replSession is one line-oriented chat.
type replSession struct {
	client *chatClient
	out    io.Writer
	errOut io.Writer
}

// handleLine runs one command or sends one message. It returns false when
// the session should end.
func (r *replSession) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if strings.HasPrefix(line, "/") {
		keepGoing, err := r.handleCommand(ctx, line)
		if err != nil {
			fmt.Fprintf(r.errOut, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
		return keepGoing
	}
	if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
		return false
	}
	if err := r.send(ctx, line); err != nil {
		fmt.Fprintf(r.errOut, "%s %v\n", errorStyle.Render("[Error]"), err)
	}
	return true
}

// send streams one turn to out as fragments arrive.
func (r *replSession) send(ctx context.Context, text string) error {
	c := r.client
	files := c.stager.Files()

	// The prefix waits for the first fragment so rejected sends print nothing
	started := false
	printed := 0
	err := c.engine.Send(ctx, text, files, func(msg model.DisplayMessage) {
		if msg.Failed {
			return
		}
		if len(msg.Text) > printed {
			if !started {
				fmt.Fprint(r.out, commandStyle.Render("assistant> "))
				started = true
			}
			fmt.Fprint(r.out, msg.Text[printed:])
			printed = len(msg.Text)
		}
	})
	if started {
		fmt.Fprintln(r.out)
	}

	if errors.Is(err, stream.ErrTurnInFlight) || errors.Is(err, request.ErrEmptyPrompt) || request.IsNoModelSelected(err) {
		// Rejected before anything was appended: files stay staged
		return err
	}

	// Preview refs now belong to the transcript entry
	c.stager.Commit()
	if err != nil {
		fmt.Fprintln(r.errOut, errorStyle.Render(stream.FailureText(err)))
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (r *replSession) handleCommand(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	c := r.client

	switch cmd {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h":
		fmt.Fprintln(r.out, chatHelp)
		return true, nil

	case "/attach":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /attach <path>...")
		}
		for _, p := range args {
			f, err := attach.LoadFile(p)
			if err != nil {
				return true, err
			}
			c.stager.Add(f)
			fmt.Fprintf(r.out, "%s %s (%s)\n", infoStyle.Render("Attached"), f.Name, util.FormatBytes(f.Size()))
		}
		return true, nil

	case "/files":
		files := c.stager.Files()
		if len(files) == 0 {
			fmt.Fprintln(r.out, infoStyle.Render("No files staged"))
		}
		for i, f := range files {
			fmt.Fprintf(r.out, "  %d. %s  %s  %s\n", i+1, f.Name, f.MediaType, util.FormatBytes(f.Size()))
		}
		return true, nil

	case "/detach":
		if len(args) != 1 {
			return true, fmt.Errorf("usage: /detach <n>")
		}
		var n int
		if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil {
			return true, fmt.Errorf("usage: /detach <n>")
		}
		f, err := c.stager.Remove(n - 1)
		if err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Removed"), f.Name)
		return true, nil

	case "/clear-files":
		c.stager.Clear()
		fmt.Fprintln(r.out, infoStyle.Render("Attachments cleared"))
		return true, nil

	case "/model":
		if len(args) == 0 {
			current := c.settings.RunSettings().Model
			if current == "" {
				current = "(none)"
			}
			fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Model:"), commandStyle.Render(current))
			return true, nil
		}
		c.settings.Update(func(s *model.RunSettings) { s.Model = args[0] })
		fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Model set to"), commandStyle.Render(args[0]))
		return true, nil

	case "/set":
		if len(args) != 2 {
			return true, fmt.Errorf("usage: /set <key> <value>")
		}
		var err error
		c.settings.Update(func(s *model.RunSettings) { err = s.Set(args[0], args[1]) })
		if err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s = %s\n", args[0], args[1])
		return true, nil

	case "/models":
		list, err := c.catalog.List(ctx)
		if err != nil {
			return true, err
		}
		printModels(r.out, list, c.settings.RunSettings().Model)
		return true, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *replSession) printWelcome(ctx context.Context) {
	c := r.client
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, welcomeStyle.Render("playground chat"))
	fmt.Fprintln(r.out, infoStyle.Render(strings.Repeat("─", 30)))

	current := c.settings.RunSettings().Model
	if current == "" {
		fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Model:"),
			warningStyle.Render("none selected (use /model <id>)"))
	} else {
		fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Model:"), commandStyle.Render(current))
	}

	if _, err := c.catalog.List(ctx); err != nil {
		fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Models:"),
			warningStyle.Render("list unavailable ("+err.Error()+")"))
	}
	fmt.Fprintln(r.out, infoStyle.Render("Type /help for commands, Ctrl+D to exit"))
	fmt.Fprintln(r.out)
}

func (r *replSession) printSummary() {
	stats := r.client.engine.Session().Stats()
	sess := r.client.engine.Session()
	fmt.Fprintf(r.out, "%s %d turns (%d failed) in %s\n",
		infoStyle.Render("Session:"),
		stats.Total(), stats.Failed, sess.Duration().Round(time.Second))
}
