package hyperspace

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/term"
)

// readLogLines returns the lines of the install log at path.
func readLogLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// highlightLogLine adds tview color tags to failure and completion lines.
func highlightLogLine(line string) string {
	escaped := tview.Escape(line)
	switch {
	case strings.Contains(line, "level=error"), strings.Contains(line, "ERROR"):
		return "[red]" + escaped + "[-]"
	case strings.Contains(line, "level=warning"), strings.Contains(line, "Warning"):
		return "[yellow]" + escaped + "[-]"
	case strings.Contains(line, "Complete ==="), strings.Contains(line, "✓"):
		return "[green]" + escaped + "[-]"
	}
	return escaped
}

// RunPager shows lines in a scrollable view when stdout is a terminal too
// small to hold them, and prints them plainly otherwise.
func RunPager(title string, lines []string) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		printLines(lines)
		return nil
	}
	if _, height, err := term.GetSize(fd); err == nil && len(lines) <= height-2 {
		printLines(lines)
		return nil
	}

	app := tview.NewApplication()

	body := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	body.SetBorder(true).SetTitle(" " + title + " ")

	highlighted := make([]string, len(lines))
	for i, line := range lines {
		highlighted[i] = highlightLogLine(line)
	}
	body.SetText(strings.Join(highlighted, "\n"))
	body.ScrollToEnd()

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]↑/↓ PgUp/PgDn Home/End to scroll, q or Esc to quit[white]")

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(footer, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc || (event.Key() == tcell.KeyRune && event.Rune() == 'q') {
			app.Stop()
			return nil
		}
		return event
	})

	if err := app.SetRoot(layout, true).SetFocus(body).Run(); err != nil {
		return fmt.Errorf("pager execution failed: %w", err)
	}
	return nil
}

func printLines(lines []string) {
	for _, line := range lines {
		fmt.Println(line)
	}
}
