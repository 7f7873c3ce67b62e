package tui

import tea "github.com/charmbracelet/bubbletea"

type noticeMsg struct {
	text    string
	failure bool
}

// Notifier forwards facade notices into the running program. Pass the same
// value to facade.WithNotifier and Run.
type Notifier struct {
	ch chan noticeMsg
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan noticeMsg, 16)}
}

func (n *Notifier) Success(msg string) { n.send(noticeMsg{text: msg}) }
func (n *Notifier) Failure(msg string) { n.send(noticeMsg{text: msg, failure: true}) }

// send drops the notice when nobody is listening and the buffer is full.
func (n *Notifier) send(m noticeMsg) {
	select {
	case n.ch <- m:
	default:
	}
}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg { return <-n.ch }
}
