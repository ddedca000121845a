package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/aiventure/internal/conn"
	"github.com/mcoot/aiventure/internal/model"
	"github.com/mcoot/aiventure/internal/protocol"
)

// ErrUnknownAction is returned for a command line naming no protocol action
var ErrUnknownAction = errors.New("unknown action")

// ParseCommand turns `action [json-object]` into an outbound message
func ParseCommand(line string) (protocol.GameMessage, error) {
	action, rest, _ := strings.Cut(strings.TrimSpace(line), " ")

	kind := protocol.ActionKind(action)
	if !kind.Known() {
		return protocol.GameMessage{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	var payload map[string]any
	if rest = strings.TrimSpace(rest); rest != "" {
		if err := json.Unmarshal([]byte(rest), &payload); err != nil {
			return protocol.GameMessage{}, fmt.Errorf("invalid payload for %s: %w", kind, err)
		}
	}

	if kind == protocol.ActionCreateLab {
		loc, _ := payload["location"].(string)
		if !model.Location(loc).Valid() {
			return protocol.GameMessage{}, fmt.Errorf("%w: %q (want us, eu or apac)", model.ErrInvalidLocation, loc)
		}
	}
	return protocol.NewMessage(kind, payload), nil
}

func newPlayCmd() *cobra.Command {
	var noRevalidate bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Connect to the game and send commands read from stdin",
		Long: `Connect with the stored credential, load the player, then read one
command per line from stdin: an action name optionally followed by a JSON
payload. Player, lab and notification updates are printed as they arrive.
Exits on EOF, "quit", a closed connection, or interrupt.

Actions: create-lab, create-model, create-player, retrieve-lab,
retrieve-player-data, update-funds`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := newOutput(cmd)

			defer app.Players.Subscribe(func(p *model.Player) {
				if p != nil {
					out.Print(*p)
				}
			})()
			defer app.Labs.Subscribe(func(l *model.Lab) {
				if l != nil {
					out.Print(*l)
				}
			})()

			closed := make(chan conn.CloseEvent, 1)
			defer app.Conn.OnClose(func(ev conn.CloseEvent) {
				select {
				case closed <- ev:
				default:
				}
			})()

			if _, err := app.Start(ctx, !noRevalidate); err != nil {
				return err
			}
			defer func() { _ = app.Conn.Close() }()

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					select {
					case lines <- scanner.Text():
					case <-ctx.Done():
						return
					}
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return nil

				case ev := <-closed:
					if ev.Local {
						return nil
					}
					return fmt.Errorf("connection closed by server: %d %s", ev.Code, ev.Reason)

				case n := <-app.Notifications.C():
					out.Print(n)

				case line, ok := <-lines:
					if !ok {
						return nil
					}
					line = strings.TrimSpace(line)
					if line == "" {
						continue
					}
					if line == "quit" || line == "exit" {
						return nil
					}

					msg, err := ParseCommand(line)
					if err != nil {
						out.PrintError(err)
						continue
					}
					if err := app.Conn.Send(msg); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().BoolVar(&noRevalidate, "no-revalidate", false, "Skip checking the credential with the server before connecting")

	return cmd
}
