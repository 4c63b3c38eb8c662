package nav

import (
	"fmt"
	"io"
	"sync"
)

// Window is a Document that remembers its title and, when Out is set,
// mirrors it to a terminal using the xterm title escape sequence.
type Window struct {
	mu    sync.Mutex
	title string
	Out   io.Writer
}

func NewWindow(title string, out io.Writer) *Window {
	return &Window{title: title, Out: out}
}

func (w *Window) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *Window) SetTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.title = title
	if w.Out != nil {
		fmt.Fprintf(w.Out, "\x1b]0;%s\x07", title)
	}
}
