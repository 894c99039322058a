// Command kds is a kitchen display. It mirrors the live order set through
// the staff API, keeps working from its local cache while the API is down,
// and accepts status commands on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/tapntake/api/internal/admin"
	"github.com/tapntake/api/internal/catalog"
	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/order"
	"github.com/tapntake/api/internal/ordersync"
	"github.com/tapntake/api/internal/quickorder"
)

// Short command names accepted on stdin.
var statusCommands = map[string]string{
	"prep":   enum.OrderStatusPreparing,
	"ready":  enum.OrderStatusReady,
	"done":   enum.OrderStatusCompleted,
	"cancel": enum.OrderStatusCancelled,
}

func main() {
	apiURL := flag.String("api", "", "API base URL")
	username := flag.String("username", "", "Staff username")
	password := flag.String("password", "", "Staff password")
	cacheDir := flag.String("cache-dir", "", "Directory for the local order cache")
	maxRetry := flag.Duration("max-retry", ordersync.DefaultMaxElapsed, "Stop reconnecting after this long")
	timezone := flag.String("timezone", "Asia/Kolkata", "Cafe time zone for the daily summary")
	flag.Parse()

	if *apiURL == "" {
		*apiURL = getEnv("KDS_API", "http://localhost:8081")
	}
	if *username == "" {
		*username = os.Getenv("KDS_USERNAME")
	}
	if *password == "" {
		*password = os.Getenv("KDS_PASSWORD")
	}
	if *cacheDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			log.Fatalf("No cache directory: %v", err)
		}
		*cacheDir = dir + "/tapntake"
	}
	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", *timezone, err)
	}

	remote, err := ordersync.NewHTTPRemote(*apiURL, *username, *password)
	if err != nil {
		log.Fatal(err)
	}
	cache, err := ordersync.OpenFileCache(*cacheDir)
	if err != nil {
		log.Fatal(err)
	}
	store := ordersync.New(remote, cache, ordersync.Options{MaxElapsed: *maxRetry})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()
	log.Printf("Cache at %s", cache.Path())

	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()

	tickets := quickorder.NewBuilder(catalog.Default())
	commands := make(chan string)
	go readCommands(os.Stdin, commands)

	render(os.Stdout, store, loc)
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			render(os.Stdout, store, loc)
		case line, ok := <-commands:
			if !ok {
				return
			}
			if err := handle(ctx, store, tickets, line); err != nil {
				if errors.Is(err, errQuit) {
					return
				}
				fmt.Fprintf(os.Stdout, "! %v\n", err)
			}
		}
	}
}

func readCommands(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out <- line
		}
	}
}

var errQuit = errors.New("quit")

// handle runs one stdin command: "<prep|ready|done|cancel|paid> <order-id>",
// "new <ticket>", "reload", "reconnect" or "quit".
func handle(ctx context.Context, store *ordersync.Store, tickets *quickorder.Builder, line string) error {
	fields := strings.Fields(line)
	switch cmd := fields[0]; cmd {
	case "quit", "exit":
		return errQuit
	case "new":
		ticket, err := quickorder.ParseTicket(strings.TrimSpace(strings.TrimPrefix(line, "new")))
		if err != nil {
			return err
		}
		for _, w := range ticket.Warnings {
			fmt.Fprintf(os.Stdout, "! %s\n", w)
		}
		o, err := tickets.Build(ticket)
		if err != nil {
			return err
		}
		o = store.AddOrder(o)
		fmt.Fprintf(os.Stdout, "+ %s for %s, total %s\n", o.ID, o.CustomerName, o.Total)
		return nil
	case "reload":
		return store.Load(ctx)
	case "reconnect":
		store.Reconnect()
		return nil
	case "paid":
		if len(fields) != 2 {
			return fmt.Errorf("usage: paid <order-id>")
		}
		_, err := store.UpdatePaymentStatus(fields[1], enum.PaymentStatusPaid)
		return err
	default:
		status, ok := statusCommands[cmd]
		if !ok || len(fields) != 2 {
			return fmt.Errorf("unknown command %q", line)
		}
		_, err := store.UpdateStatus(fields[1], status)
		return err
	}
}

func render(w io.Writer, store *ordersync.Store, loc *time.Location) {
	orders := store.Orders()
	now := time.Now()
	sum := admin.Summarize(orders, now, loc)

	state := "live"
	switch {
	case store.RetriesExhausted():
		state = "offline, type 'reconnect' to retry"
	case store.Degraded():
		state = "offline, showing cached orders"
	}
	fmt.Fprintf(w, "\n== %s | %s | %d active | %d today | total %s | %.2f/h | %d unpaid at counter",
		now.In(loc).Format("15:04"), state, sum.Active, sum.Orders, sum.DateTotal, sum.OrdersPerHour, sum.UnpaidCounter)
	if n := store.Pending(); n > 0 {
		fmt.Fprintf(w, " | %d not yet sent", n)
	}
	fmt.Fprintln(w)

	active := admin.Filter(orders, admin.Query{Status: admin.StatusActive})
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tTIME\tCUSTOMER\tSTATUS\tPAYMENT\tITEMS")
	for _, o := range active {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.Timestamp.In(loc).Format("15:04"), o.CustomerName, o.Status, o.PaymentStatus, itemSummary(o))
	}
	tw.Flush()
}

func itemSummary(o order.Order) string {
	parts := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		name := it.Name
		if len(it.SelectedAddOns) > 0 {
			addOns := make([]string, len(it.SelectedAddOns))
			for i, a := range it.SelectedAddOns {
				addOns[i] = a.Name
			}
			name += " (+" + strings.Join(addOns, ", ") + ")"
		}
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, name))
	}
	return strings.Join(parts, "; ")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
