/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorGray    = "\033[90m"
	ColorBold    = "\033[1m"
)

// UI handles the terminal interface
type UI struct {
	noColor        bool
	RenderMarkdown bool
}

// NewUI creates a new UI instance
func NewUI(noColor bool, renderMarkdown bool) *UI {
	return &UI{
		noColor:        noColor,
		RenderMarkdown: renderMarkdown,
	}
}

// colorize applies color if colors are enabled
func (ui *UI) colorize(color, text string) string {
	if ui.noColor {
		return text
	}
	return color + text + ColorReset
}

// PrintWelcome prints the welcome message
// ASCII art credit: https://ascii.co.uk/art/elephant
func (ui *UI) PrintWelcome(database string) {
	elephant := `
          _
   ______/ \-.   _           pgEdge Natural Language Agent
.-/     (    o\_//           Ask questions in plain English; answers come from SQL
 |  ___  \_/\---'            Type 'quit' or 'exit' to leave, /help for commands
 |_||  |_||
`
	fmt.Println(ui.colorize(ColorCyan, elephant))
	if database != "" {
		fmt.Println(ui.colorize(ColorGray, "Connected to database: "+database))
		fmt.Println()
	}
}

// GetPrompt returns the prompt string for readline
func (ui *UI) GetPrompt() string {
	return ui.colorize(ColorGreen+ColorBold, "You: ")
}

// PrintAnswer prints the agent's answer, rendering markdown when enabled
func (ui *UI) PrintAnswer(text string) {
	ui.ClearThinkingLine()
	fmt.Println()
	fmt.Print(ui.colorize(ColorBlue, "Agent: "))

	if ui.RenderMarkdown {
		var style string
		if ui.noColor {
			style = "notty"
		} else {
			style = "dark"
		}

		// Cap the render width so wide result tables stay readable
		width := ui.getTerminalWidth()
		if width > 120 {
			width = 120
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithStylePath(style),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			rendered, err := r.Render(text)
			if err == nil {
				fmt.Print(rendered)
				return
			}
			// Fall through to plain text if rendering fails
		}
	}

	fmt.Print(text + "\n")
}

// PrintSQL prints a generated query with its confidence score
func (ui *UI) PrintSQL(query string, confidence float64) {
	ui.ClearThinkingLine()
	fmt.Println()
	fmt.Printf("%s %s\n", ui.colorize(ColorMagenta, "SQL:"), query)
	fmt.Println(ui.colorize(ColorGray, fmt.Sprintf("confidence: %.2f", confidence)))
}

// PrintSystemMessage prints a system message
func (ui *UI) PrintSystemMessage(text string) {
	fmt.Println(ui.colorize(ColorYellow, "System: ") + text)
}

// PrintError prints an error message
func (ui *UI) PrintError(text string) {
	ui.ClearThinkingLine()
	fmt.Println()
	fmt.Println(ui.colorize(ColorRed, "Error: ") + text)
}

// PrintSeparator prints a separator line
func (ui *UI) PrintSeparator() {
	fmt.Println(ui.colorize(ColorGray, strings.Repeat("─", 80)))
}

// Elephant themed action words for the thinking animation
var elephantActions = []string{
	"Thinking with trunks",
	"Consulting the herd",
	"Stampeding through data",
	"Trumpeting queries",
	"Roaming the database",
	"Grazing on metadata",
	"Dusting off schemas",
	"Herding joins",
	"Foraging for answers",
	"Remembering everything",
}

// getThinkingMaxWidth calculates the maximum width needed for the
// thinking animation
func (ui *UI) getThinkingMaxWidth() int {
	maxWidth := 40
	for _, action := range elephantActions {
		width := len(action) + 5 // frame + space + action + "..."
		if width > maxWidth {
			maxWidth = width
		}
	}
	return maxWidth
}

// getTerminalWidth returns the maximum width for markdown rendering
func (ui *UI) getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		if width > 2 {
			return width - 2
		}
		return width
	}
	return 80
}

// ClearThinkingLine clears the thinking animation line
func (ui *UI) ClearThinkingLine() {
	maxWidth := ui.getThinkingMaxWidth()
	fmt.Print("\r" + strings.Repeat(" ", maxWidth) + "\r")
}

// ShowThinking displays an animated "thinking" indicator until done is
// closed or the context is canceled
func (ui *UI) ShowThinking(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	frameIndex := 0
	actionIndex := rand.Intn(len(elephantActions))
	actionChangeCounter := 0

	maxWidth := ui.getThinkingMaxWidth()

	fmt.Print("\r" + ui.colorize(ColorCyan, frames[frameIndex]) + " " + ui.colorize(ColorGray, elephantActions[actionIndex]) + "...")

	for {
		select {
		case <-done:
			ui.ClearThinkingLine()
			return
		case <-ctx.Done():
			ui.ClearThinkingLine()
			return
		case <-ticker.C:
			frameIndex = (frameIndex + 1) % len(frames)
			actionChangeCounter++

			// Change action text every 4 ticks (2 seconds)
			if actionChangeCounter >= 4 {
				actionIndex = rand.Intn(len(elephantActions))
				actionChangeCounter = 0
			}

			msg := ui.colorize(ColorCyan, frames[frameIndex]) + " " + ui.colorize(ColorGray, elephantActions[actionIndex]) + "..."
			padding := maxWidth - len(elephantActions[actionIndex]) - 5
			if padding > 0 {
				msg += strings.Repeat(" ", padding)
			}
			fmt.Print("\r" + msg)
		}
	}
}

// PromptForPassword prompts for the database password with hidden
// input. Returns an error if the input is interrupted.
func (ui *UI) PromptForPassword(ctx context.Context, user string) (string, error) {
	fmt.Print(ui.colorize(ColorYellow, fmt.Sprintf("Password for %s: ", user)))

	type result struct {
		password string
		err      error
	}
	resultChan := make(chan result, 1)

	go func() {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultChan <- result{password: strings.TrimSpace(string(password)), err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return "", ctx.Err()
	case res := <-resultChan:
		fmt.Println()
		if res.err != nil {
			return "", res.err
		}
		return res.password, nil
	}
}
