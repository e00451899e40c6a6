package display

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/domain"
	"restaurant-foh/internal/kitchen/board"
)

type command struct {
	verb string
	id   int64
	arg  string
}

// ReadCommands parses one command per line until r is exhausted. Unknown or
// malformed lines are logged and skipped.
func ReadCommands(r io.Reader) <-chan command {
	out := make(chan command)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			cmd, ok := parseCommand(sc.Text())
			if !ok {
				log.Warn().Str("line", sc.Text()).Msg("unrecognized command")
				continue
			}
			out <- cmd
		}
	}()
	return out
}

func parseCommand(line string) (command, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, false
	}
	verb := strings.ToLower(fields[0])
	switch verb {
	case "filter":
		// bare "filter" clears back to all tables
		arg := ""
		if len(fields) > 1 {
			arg = fields[1]
		}
		return command{verb: verb, arg: arg}, true
	case "advance", "retry", "close", "paid":
		if len(fields) != 2 {
			return command{}, false
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || id <= 0 {
			return command{}, false
		}
		return command{verb: verb, id: id}, true
	case "cancel", "cancel-order":
		if len(fields) < 3 {
			return command{}, false
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || id <= 0 {
			return command{}, false
		}
		return command{verb: verb, id: id, arg: strings.Join(fields[2:], " ")}, true
	default:
		return command{}, false
	}
}

func (a *App) execute(ctx context.Context, cmd command) {
	switch cmd.verb {
	case "filter":
		if cmd.arg == "" {
			a.presenter.SetTableFilter(board.FilterAll)
		} else {
			a.presenter.SetTableFilter(cmd.arg)
		}
		a.markDirty()
	case "advance":
		it, ok := a.boardItem(cmd.id)
		if !ok {
			log.Warn().Int64("item_id", cmd.id).Msg("item not on the board")
			return
		}
		if err := a.coord.AdvanceItem(ctx, asOrderItem(it)); err != nil {
			log.Error().Err(err).Int64("item_id", cmd.id).Msg("advance failed")
		}
	case "cancel":
		it, ok := a.boardItem(cmd.id)
		if !ok {
			log.Warn().Int64("item_id", cmd.id).Msg("item not on the board")
			return
		}
		if err := a.coord.CancelItem(ctx, asOrderItem(it), cmd.arg); err != nil {
			log.Error().Err(err).Int64("item_id", cmd.id).Msg("cancel failed")
			return
		}
		// wake the watcher so it notices the job was cancelled with the item
		if w, ok := a.watcherFor(cmd.id); ok {
			w.SetItemStatus(domain.ItemCanceled)
			w.Poke()
		}
	case "retry":
		w, ok := a.watcherFor(cmd.id)
		if !ok {
			log.Warn().Int64("item_id", cmd.id).Msg("no print watcher for item")
			return
		}
		if err := w.Retry(ctx); err != nil {
			log.Error().Err(err).Int64("item_id", cmd.id).Msg("print retry failed")
		}
	case "close":
		a.orderAction(ctx, cmd.id, func(o domain.Order) error { return a.coord.CloseOrder(ctx, o) })
	case "paid":
		a.orderAction(ctx, cmd.id, func(o domain.Order) error { return a.coord.MarkPaid(ctx, o) })
	case "cancel-order":
		a.orderAction(ctx, cmd.id, func(o domain.Order) error { return a.coord.CancelOrder(ctx, o, cmd.arg) })
	}
}

func (a *App) orderAction(ctx context.Context, orderID int64, fn func(domain.Order) error) {
	order, err := a.api.OrderByID(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("fetch order failed")
		return
	}
	if err := fn(order); err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("order action failed")
	}
}

func asOrderItem(it domain.BoardItem) domain.OrderItem {
	return domain.OrderItem{ID: it.ID, OrderID: it.OrderID, Status: it.Status}
}
