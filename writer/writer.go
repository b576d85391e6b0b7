package writer

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"
	"unicode"

	"golang.org/x/term"

	"github.com/blixt/skillflow/spinner"
)

const (
	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
	greenColor = "\033[32m"
	resetColor = "\033[0m"
)

// maxLineWidth caps the wrapping width even on wide terminals.
const maxLineWidth = 100

// Writer types out streamed text on a terminal, word wrapping it and showing
// a spinner while waiting for more text or while a task is running.
type Writer struct {
	out   io.Writer
	width int
	delay func(remaining int) time.Duration

	index  int
	stream []rune
	done   bool
	mu     sync.Mutex
	wg     sync.WaitGroup
	cond   *sync.Cond

	taskLabel string
	taskIndex int
}

type Option func(*Writer)

// WithWidth sets the line width instead of using the terminal width.
func WithWidth(width int) Option {
	return func(w *Writer) {
		w.width = width
	}
}

// WithDelay sets the pause after each character, given how many characters
// are still waiting to be written.
func WithDelay(fn func(remaining int) time.Duration) Option {
	return func(w *Writer) {
		w.delay = fn
	}
}

func New(out io.Writer, opts ...Option) *Writer {
	w := &Writer{
		out:   out,
		width: terminalWidth(out),
		delay: typingDelay,
	}
	w.cond = sync.NewCond(&w.mu)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write prints a message to stdout with the typing effect.
func Write(message string) {
	w := New(os.Stdout)
	fmt.Fprint(w, message)
	w.Done()
	w.StartAndWait()
}

func terminalWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 && width < maxLineWidth {
			return width
		}
	}
	return maxLineWidth
}

// typingDelay speeds up output when a lot of text is waiting.
func typingDelay(remaining int) time.Duration {
	ms := 5 + 35*math.Exp(-0.005*float64(remaining))
	return time.Duration(math.Max(ms, 5)) * time.Millisecond
}

// StartAndWait takes over the output, hiding the cursor and showing a spinner
// until text arrives, and returns once Done has been called and everything
// has been written.
func (w *Writer) StartAndWait() {
	fmt.Fprint(w.out, hideCursor)
	fmt.Fprint(w.out, greenColor)
	sp := spinner.Dots1.New(w.out)
	sp.Start()
	w.wg.Add(1)
	didStopSpinner := false
	go func() {
		defer w.wg.Done()
		lineLength := 0
		var charsSinceSpace []rune
		var lastSeenTask string
		for {
			w.mu.Lock()
			// Wait until there is a character to output, a task to show, or
			// the writer is done.
			for w.index == len(w.stream) && !w.done && w.taskLabel == lastSeenTask {
				w.cond.Wait()
			}

			if w.index == len(w.stream) && w.done {
				w.mu.Unlock()
				if !didStopSpinner {
					sp.Stop()
					didStopSpinner = true
				}
				break
			}

			// Show a spinner for the task once the text before it is out.
			if w.taskLabel != lastSeenTask && w.index == w.taskIndex {
				taskLabel := w.taskLabel
				w.mu.Unlock()
				lastSeenTask = taskLabel
				if didStopSpinner {
					sp = spinner.Dots1.New(w.out)
					sp.Start()
					didStopSpinner = false
				}
				sp.SetLabel(taskLabel)
				continue
			}

			next := w.stream[w.index]
			w.index++
			remaining := len(w.stream) - w.index
			w.mu.Unlock()

			if !didStopSpinner {
				sp.Stop()
				didStopSpinner = true
			}

			isNextSpace := unicode.IsSpace(next)
			if isNextSpace {
				charsSinceSpace = charsSinceSpace[:0]
			}

			shouldPrintNext := true
			if next == '\n' || lineLength >= w.width {
				numCharsSinceSpace := len(charsSinceSpace)
				if lineLength >= w.width && numCharsSinceSpace > 0 && numCharsSinceSpace < w.width/2 {
					// Move the current word to the next line.
					fmt.Fprintf(w.out, "\033[%dD\033[K\n%s", numCharsSinceSpace, string(charsSinceSpace))
					lineLength = numCharsSinceSpace
				} else {
					fmt.Fprintln(w.out)
					lineLength = 0
				}
				// Whitespace that breaks the line is not printed.
				if isNextSpace {
					shouldPrintNext = false
				}
			}

			if !isNextSpace {
				charsSinceSpace = append(charsSinceSpace, next)
			}

			if shouldPrintNext {
				fmt.Fprint(w.out, string(next))
				lineLength++
			}

			if d := w.delay(remaining); d > 0 {
				time.Sleep(d)
			}
		}
	}()
	w.wg.Wait()
	fmt.Fprint(w.out, resetColor)
	fmt.Fprint(w.out, showCursor)
	fmt.Fprintln(w.out)
}

func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return 0, io.EOF
	}
	w.stream = append(w.stream, []rune(string(p))...)
	w.cond.Broadcast()
	return len(p), nil
}

// Done marks the end of the text. Further writes fail with io.EOF.
func (w *Writer) Done() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
	w.cond.Broadcast()
}

// SetTask shows label next to a spinner once all text written so far is out.
// An empty label clears the task.
func (w *Writer) SetTask(label string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		panic("Cannot set task after the writer is done")
	}
	w.taskLabel = label
	w.taskIndex = len(w.stream)
	w.cond.Broadcast()
}
