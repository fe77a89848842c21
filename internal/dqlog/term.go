package dqlog

import "golang.org/x/term"

// isTerminal reports whether fd refers to a terminal, used to decide
// whether stderr output renders with colour/dim/bold attributes or as
// plain text (spec.md §4.B).
func isTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}
