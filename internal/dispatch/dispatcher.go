package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mcoot/aiventure/internal/dependencies/clock"
	"github.com/mcoot/aiventure/internal/model"
	"github.com/mcoot/aiventure/internal/notify"
	"github.com/mcoot/aiventure/internal/protocol"
	"github.com/mcoot/aiventure/internal/store"
)

// ErrHandlerPanic is returned for a frame whose handling panicked
var ErrHandlerPanic = errors.New("frame handler panicked")

type handlerFunc func(payload map[string]any) error

// Dispatcher applies inbound frames to the session's stores. It is the only
// writer of those stores and is driven from the connection's read loop, one
// frame at a time.
type Dispatcher struct {
	players  *store.PlayerStore
	labs     *store.LabStore
	notifier notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger

	routes map[protocol.ActionKind]handlerFunc
}

// New creates a dispatcher writing to players and labs
func New(players *store.PlayerStore, labs *store.LabStore, notifier notify.Notifier, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		players:  players,
		labs:     labs,
		notifier: notifier,
		clock:    clk,
		logger:   logger.With(slog.String("component", "dispatch")),
	}
	d.routes = map[protocol.ActionKind]handlerFunc{
		protocol.ActionCreateLab:          d.createLab,
		protocol.ActionCreateModel:        d.createModel,
		protocol.ActionCreatePlayer:       d.replacePlayer,
		protocol.ActionRetrievePlayerData: d.replacePlayer,
		protocol.ActionRetrieveLab:        d.replaceLab,
		protocol.ActionUpdateFunds:        d.updateFunds,
	}
	return d
}

// HandleFrame decodes one frame, surfaces its error field, then routes a
// non-empty payload by action. Unknown actions are ignored. Errors returned
// here concern this frame only.
func (d *Dispatcher) HandleFrame(data []byte) (err error) {
	resp, err := protocol.DecodeResponse(data)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("action", string(resp.Action)),
			)
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	if resp.Error != "" {
		d.notifier.Notify(notify.Notification{
			Level:   notify.LevelError,
			Action:  resp.Action,
			Message: resp.Error,
			At:      d.clock.Now(),
		})
	}

	if !resp.HasPayload() {
		return nil
	}

	route, ok := d.routes[resp.Action]
	if !ok {
		d.logger.Debug("ignoring unhandled action", slog.String("action", string(resp.Action)))
		return nil
	}

	if err := route(resp.Payload); err != nil {
		d.logger.Warn("payload rejected",
			slog.String("action", string(resp.Action)),
			slog.Any("error", err),
		)
		return fmt.Errorf("%s: %w", resp.Action, err)
	}
	return nil
}

func (d *Dispatcher) createLab(payload map[string]any) error {
	lab, err := protocol.DecodePayload[model.Lab](payload, "id")
	if err != nil {
		return err
	}
	if d.players.Get() == nil {
		return nil
	}
	d.players.Update(func(p *model.Player) *model.Player {
		return store.AppendLab(p, lab)
	})
	return nil
}

func (d *Dispatcher) createModel(payload map[string]any) error {
	m, err := protocol.DecodePayload[model.AIModel](payload, "id")
	if err != nil {
		return err
	}

	d.labs.Update(func(l *model.Lab) *model.Lab {
		return store.AppendModel(l, m)
	})

	if lab := d.labs.Get(); lab != nil {
		d.syncNestedLab(*lab)
	}
	return nil
}

func (d *Dispatcher) replacePlayer(payload map[string]any) error {
	p, err := protocol.DecodePayload[model.Player](payload, "id")
	if err != nil {
		return err
	}
	d.players.Set(&p)
	return nil
}

func (d *Dispatcher) replaceLab(payload map[string]any) error {
	lab, err := protocol.DecodePayload[model.Lab](payload, "id")
	if err != nil {
		return err
	}
	d.labs.Set(&lab)
	d.syncNestedLab(lab)
	return nil
}

func (d *Dispatcher) updateFunds(payload map[string]any) error {
	update, err := protocol.DecodePayload[protocol.FundsUpdate](payload, "funds")
	if err != nil {
		return err
	}
	d.players.Update(func(p *model.Player) *model.Player {
		return store.WithFunds(p, update.Funds)
	})
	return nil
}

// syncNestedLab keeps the player's copy of a lab in step with the focused lab
func (d *Dispatcher) syncNestedLab(lab model.Lab) {
	d.players.Update(func(p *model.Player) *model.Player {
		return store.ReplaceLab(p, lab)
	})
}
