package client

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Notification ids, one per user-visible operation.
const (
	ToastLoadChats   = "loadchats"
	ToastSendChat    = "sendchat"
	ToastDeleteChats = "deletechats"
)

type ToastKind string

const (
	ToastLoading ToastKind = "loading"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Notifier shows short status messages. A later call with the same id
// replaces the earlier one.
type Notifier interface {
	Notify(id string, kind ToastKind, text string)
}

var (
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// TerminalNotifier prints one line per notification. Loading lines are only
// printed when verbose is set.
type TerminalNotifier struct {
	w       io.Writer
	verbose bool
	mu      sync.Mutex
}

func NewTerminalNotifier(w io.Writer, verbose bool) *TerminalNotifier {
	return &TerminalNotifier{w: w, verbose: verbose}
}

func (n *TerminalNotifier) Notify(id string, kind ToastKind, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch kind {
	case ToastLoading:
		if n.verbose {
			fmt.Fprintln(n.w, loadingStyle.Render("… "+text))
		}
	case ToastSuccess:
		fmt.Fprintln(n.w, successStyle.Render("✓ "+text))
	case ToastError:
		fmt.Fprintln(n.w, errorStyle.Render("✗ "+text))
	}
}
