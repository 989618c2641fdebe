// Package progress reports per-page import outcomes to the user.
package progress

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Reporter receives the outcome of every page plus coarse run progress.
// Implementations must tolerate being called for every page of a large
// import; IsCancelled is polled at the start of each page iteration.
type Reporter interface {
	Status(text string)
	ReportProgress(done, total int)
	ReportPageSuccess(id, title string)
	ReportPageSkipped(id, title, reason string)
	ReportPageFailed(id, title, reason string)
	IsCancelled() bool
	Done()
}

var (
	statusStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Console writes progress to stdout and treats context cancellation (ctrl-C)
// as the cancel signal.
type Console struct {
	ctx       context.Context
	done      int
	total     int
	succeeded int
	skipped   int
	failed    int
}

// NewConsole creates a console reporter bound to the run context.
func NewConsole(ctx context.Context) *Console {
	return &Console{ctx: ctx}
}

func (c *Console) Status(text string) {
	fmt.Println(statusStyle.Render(text))
}

func (c *Console) ReportProgress(done, total int) {
	c.done, c.total = done, total
}

func (c *Console) ReportPageSuccess(id, title string) {
	c.succeeded++
	fmt.Printf("%s %s %s\n", successStyle.Render("✓"), title, c.counter())
}

func (c *Console) ReportPageSkipped(id, title, reason string) {
	c.skipped++
	fmt.Printf("%s %s %s %s\n", skipStyle.Render("-"), title, dimStyle.Render(reason), c.counter())
}

func (c *Console) ReportPageFailed(id, title, reason string) {
	c.failed++
	fmt.Printf("%s %s %s %s\n", failStyle.Render("✗"), title, dimStyle.Render(reason), c.counter())
}

func (c *Console) IsCancelled() bool {
	return c.ctx.Err() != nil
}

func (c *Console) Done() {
	fmt.Printf("\n%s %d succeeded, %d skipped, %d failed\n",
		statusStyle.Render("Import finished:"), c.succeeded, c.skipped, c.failed)
}

func (c *Console) counter() string {
	if c.total == 0 {
		return ""
	}
	return dimStyle.Render(fmt.Sprintf("(%d/%d)", c.done, c.total))
}

// Nop discards all progress. Used by scheduled syncs and tests.
type Nop struct{}

func (Nop) Status(string)                      {}
func (Nop) ReportProgress(int, int)            {}
func (Nop) ReportPageSuccess(string, string)   {}
func (Nop) ReportPageSkipped(_, _, _ string)   {}
func (Nop) ReportPageFailed(_, _, _ string)    {}
func (Nop) IsCancelled() bool                  { return false }
func (Nop) Done()                              {}
