package main

import (
	"fmt"
	"strings"

	"deferred-engine/scene"
)

// DebugOverlay collects status lines and shows them on a FontBoard node.
type DebugOverlay struct {
	lines []string
	board *scene.Node
}

func NewDebugOverlay(board *scene.Node) *DebugOverlay {
	return &DebugOverlay{board: board}
}

func (do *DebugOverlay) AddLine(format string, args ...interface{}) {
	do.lines = append(do.lines, fmt.Sprintf(format, args...))
}

func (do *DebugOverlay) Clear() {
	do.lines = do.lines[:0]
}

func (do *DebugOverlay) GetText() string {
	return strings.Join(do.lines, "\n")
}

// Flush pushes the text to the board when it changed; regeneration is
// triggered only then.
func (do *DebugOverlay) Flush() {
	if do.board == nil || do.board.Text == nil {
		return
	}
	if text := do.GetText(); text != do.board.Text.Text {
		do.board.SetText(text)
	}
}
