package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mcoot/aiventure/internal/api/response"
	"github.com/mcoot/aiventure/internal/model"
	"github.com/mcoot/aiventure/internal/notify"
)

// Output handles formatting output based on the configured format.
// play prints from the connection's read loop too, so writes are locked.
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
	mu     sync.Mutex
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

func newOutput(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		data, _ := json.Marshal(map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		})
		_, _ = fmt.Fprintln(o.errOut, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.out, string(data))
	} else {
		_, _ = fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	// One object per line so play output can be consumed as a stream
	_ = json.NewEncoder(o.out).Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case model.Credential:
		o.printCredential(v)
	case model.Profile:
		o.printProfile(v)
	case model.Player:
		o.printPlayer(v)
	case model.Lab:
		o.printLab(v)
	case notify.Notification:
		o.printNotification(v)
	case response.Health:
		o.printf("Status: %s\n", v.Status)
	case response.Version:
		o.printf("Version: %s\n", v.Version)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, format, args...)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (o *Output) printCredential(c model.Credential) {
	if c.Profile != nil {
		o.printf("Logged in as %s\n", c.Profile.Email)
	} else {
		o.printf("Logged in\n")
	}
	o.printf("Verified: %s\n", yesNo(c.Verified))
}

func (o *Output) printProfile(p model.Profile) {
	o.printf("User: %s (%s)\n", p.Email, p.ID)
	o.printf("Verified: %s\n", yesNo(p.IsVerified))
	o.printf("Admin: %s\n", yesNo(p.IsAdmin))
}

func (o *Output) printPlayer(p model.Player) {
	o.printf("Player: %s (%s)\n", p.Name, p.ID)
	o.printf("Funds: %.2f\n", p.Funds)
	o.printf("Labs (%d):\n", len(p.Labs))
	for _, l := range p.Labs {
		o.printf("  - %s (%s, %s) models: %d\n", l.Name, l.ID, l.Location, len(l.Models))
	}
}

func (o *Output) printLab(l model.Lab) {
	o.printf("Lab: %s (%s)\n", l.Name, l.ID)
	o.printf("Location: %s\n", l.Location)
	o.printf("Valuation: %.2f  Income: %.2f\n", l.Valuation, l.Income)
	o.printf("Employees: %d\n", len(l.Employees))
	o.printf("Models (%d):\n", len(l.Models))
	for _, m := range l.Models {
		o.printf("  - %s (%s) type %d\n", m.Name, m.ID, m.AIModelTypeID)
	}
}

func (o *Output) printNotification(n notify.Notification) {
	if n.Action != "" {
		o.printf("[%s] %s: %s\n", n.Level, n.Action, n.Message)
		return
	}
	o.printf("[%s] %s\n", n.Level, n.Message)
}
