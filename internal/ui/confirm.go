package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm prompts the user with a yes/no question on stdin.
func Confirm(prompt string) bool {
	return ConfirmFrom(os.Stdin, os.Stdout, StyleWarning, prompt)
}

// ConfirmDanger is Confirm styled for irreversible actions such as paying
// out the pool.
func ConfirmDanger(prompt string) bool {
	return ConfirmFrom(os.Stdin, os.Stdout, StyleError, "⚠ "+prompt)
}

// ConfirmFrom reads a y/N answer from in. Anything but "y" or "yes" is no.
func ConfirmFrom(in io.Reader, out io.Writer, style lipgloss.Style, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", style.Render(prompt))
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
