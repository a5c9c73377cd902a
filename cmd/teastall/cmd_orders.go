package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/config"
	stallhttp "github.com/teastall/teastall/pkg/http"
	"github.com/teastall/teastall/pkg/sse"
)

var (
	watchIDFlag       string
	watchModeFlag     string
	watchIntervalFlag time.Duration
	watchURLFlag      string
	watchTokenFlag    string
)

// errSettled ends a watch once the order can no longer change.
var errSettled = errors.New("order settled")

// teastall orders:watch: follow one order the way a customer screen does.
var ordersWatchCmd = &cobra.Command{
	Use:   "orders:watch",
	Short: "Follow an order's status over the event stream or by polling",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if watchIDFlag == "" {
			return errors.New("orders:watch: --id is required")
		}

		base := watchURLFlag
		if base == "" {
			base = "http://localhost:" + config.AppPort()
		}
		token := watchTokenFlag
		if token == "" {
			token = os.Getenv("TEASTALL_TOKEN")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := &watcher{
			client:   stallhttp.New(base, stallhttp.WithToken(token)),
			id:       watchIDFlag,
			interval: watchIntervalFlag,
			out:      cmd.OutOrStdout(),
		}
		return w.run(ctx, watchModeFlag)
	},
}

func init() {
	f := ordersWatchCmd.Flags()
	f.StringVar(&watchIDFlag, "id", "", "order id")
	f.StringVar(&watchModeFlag, "mode", "push", "push (event stream) or poll")
	f.DurationVar(&watchIntervalFlag, "interval", 3*time.Second, "poll interval")
	f.StringVar(&watchURLFlag, "url", "", "API base URL (default http://localhost:$APP_PORT)")
	f.StringVar(&watchTokenFlag, "token", "", "bearer token (default $TEASTALL_TOKEN)")
}

type watcher struct {
	client   *stallhttp.Client
	id       string
	interval time.Duration
	out      io.Writer

	last string
	seen time.Time
}

func (w *watcher) run(ctx context.Context, mode string) error {
	var err error
	switch mode {
	case "push":
		err = w.push(ctx)
	case "poll":
		err = w.poll(ctx)
	default:
		return fmt.Errorf("orders:watch: unknown mode %q", mode)
	}
	if errors.Is(err, errSettled) {
		return nil
	}
	return err
}

// push subscribes first and reads the order once the stream confirms the
// subscription, so a change landing between the two is still seen.
func (w *watcher) push(ctx context.Context) error {
	return w.client.Stream(ctx, "/api/events", func(frame []byte) error {
		var ev services.OrderEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil
		}
		if ev.Type == sse.ConnectedType {
			return w.fetch(ctx)
		}
		if ev.OrderID != w.id || ev.Order == nil {
			return nil
		}
		return w.observe(ev.Order)
	})
}

// poll re-reads the order every interval and prints changes.
func (w *watcher) poll(ctx context.Context) error {
	interval := w.interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if err := w.fetch(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.fetch(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *watcher) fetch(ctx context.Context) error {
	var o models.Order
	if err := w.client.GetJSON(ctx, "/api/orders/"+w.id, &o); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return w.observe(&o)
}

// observe prints o when it differs from the last state shown. Events older
// than the state already shown are dropped.
func (w *watcher) observe(o *models.Order) error {
	if o.UpdatedAt.Before(w.seen) {
		return nil
	}
	w.seen = o.UpdatedAt
	line := fmt.Sprintf("%s  status=%s  payment=%s", o.ID.Hex(), o.Status, o.PaymentStatus)
	if line != w.last {
		w.last = line
		fmt.Fprintf(w.out, "%s  %s\n", o.UpdatedAt.Format(time.TimeOnly), line)
	}
	if o.Status == models.StatusCompleted || o.Status == models.StatusCancelled {
		return errSettled
	}
	return nil
}
