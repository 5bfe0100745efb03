package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/conorfennell/knolsched/internal/sched"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	newStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	learnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	reviewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			MarginBottom(1)
)

// renderCounts shows counts as colored new/learn/review numbers.
func renderCounts(c sched.Counts) string {
	return fmt.Sprintf("%s %s %s",
		newStyle.Render(fmt.Sprint(c.New)),
		learnStyle.Render(fmt.Sprint(c.Learn)),
		reviewStyle.Render(fmt.Sprint(c.Review)))
}

// renderTree draws the due tree with one indented line per deck.
func renderTree(nodes []*sched.DueNode, withCounts bool) string {
	var b strings.Builder
	var walk func(nodes []*sched.DueNode, depth int)
	walk = func(nodes []*sched.DueNode, depth int) {
		for _, n := range nodes {
			name := n.Basename
			if n.Filtered {
				name = mutedStyle.Render(name + " (filtered)")
			}
			line := strings.Repeat("  ", depth) + name
			if withCounts {
				line = fmt.Sprintf("%-40s %s", line, renderCounts(sched.Counts{New: n.New, Learn: n.Learn, Review: n.Review}))
			}
			b.WriteString(line + "\n")
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
	return b.String()
}

// renderNewByDeck lists the decks that contribute new cards today, in
// tree order.
func renderNewByDeck(nodes []*sched.DueNode, perDeck map[int64]int) string {
	var b strings.Builder
	var walk func(nodes []*sched.DueNode)
	walk = func(nodes []*sched.DueNode) {
		for _, n := range nodes {
			if cnt := perDeck[n.DeckID]; cnt > 0 {
				fmt.Fprintf(&b, "%-40s %s\n", n.Name, newStyle.Render(fmt.Sprint(cnt)))
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return b.String()
}

// humanInterval renders seconds the way answer buttons show them.
func humanInterval(secs int64) string {
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh", secs/3600)
	case secs < 30*86400:
		return fmt.Sprintf("%dd", secs/86400)
	case secs < 365*86400:
		return fmt.Sprintf("%.1fmo", float64(secs)/(30*86400))
	}
	return fmt.Sprintf("%.1fy", float64(secs)/(365*86400))
}
