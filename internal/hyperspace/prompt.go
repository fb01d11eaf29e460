package hyperspace

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// interactiveMu ensures only one interactive prompt reads stdin at a time.
var interactiveMu sync.Mutex

func askForConfirmation(p colorPrinter, format string, a ...any) bool {
	interactiveMu.Lock()
	defer interactiveMu.Unlock()

	return confirm(bufio.NewReader(os.Stdin), p, fmt.Sprintf(format, a...))
}

// confirm asks a [Y/n] question on r until it gets a recognisable answer.
// An empty answer is yes; EOF is no.
func confirm(r *bufio.Reader, p colorPrinter, question string) bool {
	for {
		cPrintf(p, "%s [Y/n]: ", question)
		response, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || response == "") {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(response)) {
		case "y", "yes", "":
			return true
		case "n", "no":
			return false
		}
		cPrintln(colWarn, "Invalid input.")
	}
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// gatekeeperPrompt asks the user to allow ftlman in System Settings after a
// blocked run. Without a terminal to ask on, it declines. pause and resume,
// when set, let a live progress display step aside while the prompt owns the
// terminal.
func gatekeeperPrompt(pause, resume func()) RetryDecider {
	return func(ctx context.Context, attempt int, cause error) bool {
		if ctx.Err() != nil {
			return false
		}
		if pause != nil {
			pause()
		}
		if resume != nil {
			defer resume()
		}
		if !stdinIsTerminal() {
			return false
		}
		fmt.Println()
		arrowf(colWarn, "ftlman blocked by Gatekeeper (attempt %d)", attempt)
		fmt.Println("   ftlman needs to be allowed to run.")
		fmt.Println("   Go to System Settings > Privacy & Security and click 'Allow' for ftlman.")
		return askForConfirmation(colNote, "   Try again")
	}
}
