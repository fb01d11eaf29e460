package hyperspace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseSelectionIndex parses a 1-based menu choice into a 0-based index.
func ParseSelectionIndex(input string, max int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("no selection")
	}
	idx, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if idx <= 0 || idx > max {
		return 0, fmt.Errorf("number out of range (1-%d): %d", max, idx)
	}
	return idx - 1, nil
}

// AskForTarget lists the detected installations and lets the user pick one.
// A single installation is chosen without asking. ok is false when the user
// cancels or stdin closes.
func AskForTarget(targets []Target) (Target, bool) {
	interactiveMu.Lock()
	defer interactiveMu.Unlock()
	return selectTarget(os.Stdin, targets)
}

func selectTarget(in io.Reader, targets []Target) (Target, bool) {
	switch len(targets) {
	case 0:
		return Target{}, false
	case 1:
		return targets[0], true
	}

	for i, t := range targets {
		fmt.Printf("  %d) %s\n", i+1, t.DisplayName())
		fmt.Printf("     %s\n", t.Path())
	}

	scanner := bufio.NewScanner(in)
	for {
		colArrow.Print("-> ")
		colNote.Print(fmt.Sprintf("Select FTL installation [1-%d, n to cancel]: ", len(targets)))

		if !scanner.Scan() {
			return Target{}, false
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "n", "no", "c", "cancel":
			return Target{}, false
		}

		idx, err := ParseSelectionIndex(input, len(targets))
		if err != nil {
			colError.Printf("Error: %v\n", err)
			continue
		}
		return targets[idx], true
	}
}
