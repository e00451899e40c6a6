package spooler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"restaurant-foh/internal/domain"
)

// Printer renders one kitchen ticket. The production implementation talks to
// whatever device the venue has; FilePrinter spools tickets to disk.
type Printer interface {
	Print(ctx context.Context, msg domain.TicketMessage) error
}

// FilePrinter writes each ticket as a text file into a spool directory,
// pausing Delay per ticket the way a thermal printer would.
type FilePrinter struct {
	Dir   string
	Delay time.Duration
}

func (p *FilePrinter) Print(ctx context.Context, msg domain.TicketMessage) error {
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("spool dir: %w", err)
	}
	name := filepath.Join(p.Dir, fmt.Sprintf("ticket-%d-%d.txt", msg.JobID, msg.Attempt))
	return os.WriteFile(name, []byte(renderTicket(msg)), 0o644)
}

func renderTicket(msg domain.TicketMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "====== KITCHEN ======\n")
	fmt.Fprintf(&b, "Order #%d  %s/%s\n", msg.OrderID, msg.Zone, msg.Table)
	fmt.Fprintf(&b, "Waiter: %s\n", msg.WaiterName)
	fmt.Fprintf(&b, "---------------------\n")
	fmt.Fprintf(&b, "%dx %s\n", msg.Quantity, msg.RecipeName)
	if msg.Notes != "" {
		fmt.Fprintf(&b, "  * %s\n", msg.Notes)
	}
	if msg.IsTakeaway {
		fmt.Fprintf(&b, "  TAKEAWAY\n")
	}
	if msg.Attempt > 1 {
		fmt.Fprintf(&b, "  REPRINT (attempt %d)\n", msg.Attempt)
	}
	fmt.Fprintf(&b, "=====================\n")
	return b.String()
}
