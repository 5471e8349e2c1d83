package zfsrender

import (
	"context"
	"fmt"
	"os"

	"github.com/function61/zfsview/pkg/zfsbrowser"
	"github.com/mattn/go-isatty"
	"github.com/nsf/termbox-go"
)

// what the viewer needs from *zfsbrowser.Controller
type Browser interface {
	Refresh()
	SetShowSnapshots(bool)
	View() zfsbrowser.View
	Events() <-chan zfsbrowser.Event
}

func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// interactive full-screen viewer. returns when user quits or ctx is canceled.
//
// keys: s = toggle snapshots, r = refresh, arrows/PgUp/PgDn = scroll, q/Esc/Ctrl+c = quit
func RunViewer(ctx context.Context, browser Browser) error {
	// while using termbox, ctrl+c doesn't work as a SIGINT anymore:
	//   https://github.com/nsf/termbox-go/issues/50#issuecomment-60668910
	if err := termbox.Init(); err != nil {
		return err
	}
	defer termbox.Close()

	keys := make(chan termbox.Event)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			ev := termbox.PollEvent()
			if ev.Type == termbox.EventInterrupt {
				return
			}

			select {
			case keys <- ev:
			case <-done:
				return
			}
		}
	}()
	defer termbox.Interrupt()

	state := &viewerState{view: browser.View()}

	browser.Refresh()

	for {
		_, height := termbox.Size()

		if err := state.draw(height); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case e := <-browser.Events():
			state.view = e.View
		case ev := <-keys:
			if ev.Type == termbox.EventError {
				return ev.Err
			}

			if ev.Type != termbox.EventKey {
				continue // resize etc. just redraw
			}

			if quit := state.perform(state.handleKey(ev, height), browser); quit {
				return nil
			}
		}
	}
}

type action int

const (
	actionNone action = iota
	actionQuit
	actionRefresh
	actionToggleSnapshots
)

type viewerState struct {
	view   zfsbrowser.View
	scroll int // index of first visible table row
}

// returns true if the viewer should quit
func (v *viewerState) perform(act action, browser Browser) bool {
	switch act {
	case actionQuit:
		return true
	case actionRefresh:
		browser.Refresh()
	case actionToggleSnapshots:
		browser.SetShowSnapshots(!v.view.ShowSnapshots)

		// the FilterChanged event can be dropped, so don't wait for it
		v.view = browser.View()
	}

	return false
}

func (v *viewerState) handleKey(ev termbox.Event, height int) action {
	page := pageSize(height)

	switch {
	case ev.Ch == 'q' || ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC:
		return actionQuit
	case ev.Ch == 'r':
		return actionRefresh
	case ev.Ch == 's':
		return actionToggleSnapshots
	case ev.Key == termbox.KeyArrowDown || ev.Ch == 'j':
		v.scroll++
	case ev.Key == termbox.KeyArrowUp || ev.Ch == 'k':
		v.scroll--
	case ev.Key == termbox.KeyPgdn:
		v.scroll += page
	case ev.Key == termbox.KeyPgup:
		v.scroll -= page
	case ev.Key == termbox.KeyHome:
		v.scroll = 0
	}

	v.clampScroll(height)

	return actionNone
}

func (v *viewerState) clampScroll(height int) {
	maxScroll := len(v.view.Rows) - pageSize(height)
	if v.scroll > maxScroll {
		v.scroll = maxScroll
	}
	if v.scroll < 0 {
		v.scroll = 0
	}
}

// table header takes two lines, status bar two
func pageSize(height int) int {
	if height < 5 {
		return 1
	}

	return height - 4
}

func (v *viewerState) draw(height int) error {
	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		return err
	}

	v.clampScroll(height)

	lines := v.visibleLines(height)

	for y, line := range lines {
		drawLine(y, line, termbox.ColorDefault)
	}

	statusColor := termbox.ColorDefault
	if v.view.LastError != "" {
		statusColor = termbox.ColorRed
	}

	drawLine(height-2, StatusLine(v.view), statusColor)
	drawLine(height-1, "s: snapshots  r: refresh  q: quit", termbox.ColorDefault)

	return termbox.Flush()
}

// header + rows from scroll position on
func (v *viewerState) visibleLines(height int) []string {
	visible := v.view
	end := v.scroll + pageSize(height)
	if end > len(visible.Rows) {
		end = len(visible.Rows)
	}
	visible.Rows = visible.Rows[v.scroll:end]

	if len(visible.Columns) == 0 {
		return []string{"loading..."}
	}

	return TableLines(visible)
}

func StatusLine(view zfsbrowser.View) string {
	snapshots := "hidden"
	if view.ShowSnapshots {
		snapshots = "shown"
	}

	status := fmt.Sprintf("%d rows, snapshots %s", len(view.Rows), snapshots)

	if view.Refreshing {
		status += ", refreshing.."
	} else if !view.RefreshedAt.IsZero() {
		status += ", refreshed " + view.RefreshedAt.Format("15:04:05")
	}

	if view.LastError != "" {
		status += " | ERROR: " + view.LastError
	} else if len(view.Diagnostics) > 0 {
		status += " | " + view.Diagnostics[len(view.Diagnostics)-1].Message
	}

	return status
}

func drawLine(y int, line string, fg termbox.Attribute) {
	for x, ch := range []rune(line) {
		termbox.SetCell(x, y, ch, fg, termbox.ColorDefault)
	}
}
