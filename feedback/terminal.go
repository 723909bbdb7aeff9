package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// ErrQuit is returned by TerminalSink.Serve when the user asks to quit.
var ErrQuit = errors.New("quit requested")

var (
	styleLit    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleDark   = tcell.StyleDefault.Foreground(tcell.ColorDarkGrey)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleHelp   = tcell.StyleDefault.Foreground(tcell.ColorDarkGrey)
)

const (
	cellLit  = '●'
	cellDark = '·'
)

// TerminalSink draws the LED matrix and the last indication on a terminal screen.
type TerminalSink struct {
	mu     sync.Mutex
	screen tcell.Screen
	img    Image
	status string
}

// NewTerminalSink takes over the controlling terminal.
func NewTerminalSink() (*TerminalSink, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	return NewTerminalSinkScreen(screen), nil
}

// NewTerminalSinkScreen draws on an already initialised screen.
func NewTerminalSinkScreen(screen tcell.Screen) *TerminalSink {
	t := &TerminalSink{screen: screen, img: IconNeutral, status: "idle"}
	t.mu.Lock()
	t.draw()
	t.mu.Unlock()
	return t
}

func (t *TerminalSink) Indicate(ind Indication) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = string(ind)
	t.img = IndicationImage(ind)
	t.draw()
}

func (t *TerminalSink) ShowImage(img Image) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.img = img
	t.draw()
}

// draw must be called with mu held.
func (t *TerminalSink) draw() {
	t.screen.Clear()
	for y := 0; y < ImageHeight; y++ {
		for x := 0; x < ImageWidth; x++ {
			r, st := cellDark, styleDark
			if t.img.Lit(x, y) {
				r, st = cellLit, styleLit
			}
			t.screen.SetContent(2+x*2, 1+y, r, nil, st)
		}
	}
	putString(t.screen, 1, ImageHeight+2, t.status, styleStatus)
	putString(t.screen, 1, ImageHeight+3, "p: pair  q: quit", styleHelp)
	t.screen.Show()
}

func putString(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}

// Serve runs the key loop until ctx is done or the user quits.
// Pressing 'p' calls pair.
func (t *TerminalSink) Serve(ctx context.Context, pair func()) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go t.screen.ChannelEvents(events, quit)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch ev.Key() {
				case tcell.KeyCtrlC, tcell.KeyEscape:
					return ErrQuit
				case tcell.KeyRune:
					switch ev.Rune() {
					case 'q', 'Q':
						return ErrQuit
					case 'p', 'P':
						if pair != nil {
							pair()
						}
					}
				}
			case *tcell.EventResize:
				t.mu.Lock()
				t.screen.Sync()
				t.draw()
				t.mu.Unlock()
			}
		}
	}
}

// Close restores the terminal.
func (t *TerminalSink) Close() {
	t.screen.Fini()
}
