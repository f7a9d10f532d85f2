// Command storefront is a small CLI for exercising the SDK against a live
// QuickMed API: log in, browse the catalog, inspect the cart and watch an
// order's delivery status.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/quickmed/storefront/internal/api"
	"github.com/quickmed/storefront/internal/cart"
	"github.com/quickmed/storefront/internal/catalog"
	"github.com/quickmed/storefront/internal/checkout"
	"github.com/quickmed/storefront/internal/config"
	"github.com/quickmed/storefront/internal/domain/order"
	"github.com/quickmed/storefront/internal/logging"
	"github.com/quickmed/storefront/internal/orders"
	"github.com/quickmed/storefront/internal/prescriptions"
	"github.com/quickmed/storefront/internal/profile"
	"github.com/quickmed/storefront/internal/session"
)

func main() {
	configPath := flag.String("config", "config/storefront.yaml", "path to the configuration file")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(os.Stderr, "storefront", level)

	storage, err := session.NewFileStorage(cfg.TokenFile)
	if err != nil {
		log.Fatalf("credential storage: %v", err)
	}
	sess := session.New(storage, logging.New(os.Stderr, "session", level))

	client, err := api.New(api.Config{
		BaseURL:           cfg.APIURL,
		Tokens:            sess,
		OnUnauthorized:    sess.Invalidate,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logging.New(os.Stderr, "api", level),
	})
	if err != nil {
		log.Fatalf("api client: %v", err)
	}
	sess.Bind(client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sess.Restore(ctx); err != nil {
		logger.Error(err, "restore session")
	}

	if err := run(ctx, cfg, client, sess, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, api.Detail(err, err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, client *api.Client, sess *session.Store, args []string) error {
	switch args[0] {
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: storefront login <email> (password via STOREFRONT_PASSWORD)")
		}
		password := os.Getenv("STOREFRONT_PASSWORD")
		if password == "" {
			return fmt.Errorf("set STOREFRONT_PASSWORD")
		}
		if err := sess.Login(ctx, args[1], password); err != nil {
			return err
		}
		u, _ := sess.User()
		fmt.Printf("logged in as %s\n", u.Email)
		return nil

	case "logout":
		sess.Logout()
		return nil

	case "medicines":
		meds, err := catalog.New(client).Medicines(ctx, 0, "")
		if err != nil {
			return err
		}
		for _, m := range meds {
			rxTag := ""
			if m.RequiresPrescription {
				rxTag = " [rx]"
			}
			fmt.Printf("%6d  %-30s %8s  stock %d%s\n", m.ID, m.Name, m.Price.StringFixed(2), m.Stock, rxTag)
		}
		return nil

	case "cart":
		cartSvc := cart.New(client, nil)
		view, err := cartSvc.Load(ctx)
		if err != nil {
			return err
		}
		for _, it := range view.Items {
			fmt.Printf("%6d  %-30s x%-3d %8s\n", it.ID, it.Name, it.Quantity, it.Subtotal().StringFixed(2))
		}
		fmt.Printf("total: %s\n", cartSvc.Total().StringFixed(2))
		if view.NeedsPrescription {
			fmt.Println("note: some items require a prescription")
		}
		return nil

	case "fees":
		for _, opt := range []checkout.DeliveryOption{checkout.DeliveryStandard, checkout.DeliveryExpress, checkout.DeliveryEmergency} {
			fee, _ := checkout.DeliveryFee(opt)
			fmt.Printf("%-10s %s\n", opt, fee.StringFixed(2))
		}
		return nil

	case "orders":
		all, err := orders.New(client, nil).List(ctx)
		if err != nil {
			return err
		}
		for _, ord := range all {
			fmt.Printf("%6d  %-16s %8s  %s\n", ord.ID, ord.Status, ord.TotalAmount.StringFixed(2), ord.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil

	case "cancel":
		if len(args) != 2 {
			return fmt.Errorf("usage: storefront cancel <order-id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad order id %q", args[1])
		}
		ord, err := orders.New(client, nil).Cancel(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("order %d is now %s\n", ord.ID, ord.Status)
		return nil

	case "prescriptions":
		all, err := prescriptions.New(client, nil).List(ctx)
		if err != nil {
			return err
		}
		for _, p := range all {
			fmt.Printf("%6d  %-30s %s\n", p.ID, p.Filename, p.Status)
		}
		return nil

	case "upload":
		if len(args) != 2 {
			return fmt.Errorf("usage: storefront upload <file>")
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		created, err := prescriptions.New(client, nil).Upload(ctx, filepath.Base(args[1]), f)
		if err != nil {
			return err
		}
		fmt.Printf("prescription %d uploaded (%s)\n", created.ID, created.Status)
		return nil

	case "addresses":
		all, err := profile.New(client, sess, nil).Addresses(ctx)
		if err != nil {
			return err
		}
		for _, a := range all {
			mark := " "
			if a.IsDefault {
				mark = "*"
			}
			fmt.Printf("%s %4d  %s, %s %s\n", mark, a.ID, a.Street, a.City, a.PostalCode)
		}
		return nil

	case "watch":
		if len(args) != 2 {
			return fmt.Errorf("usage: storefront watch <order-id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad order id %q", args[1])
		}
		tracker := orders.New(client, nil)
		watcher, err := orders.NewWatcher(tracker, id, cfg.OrderPollSchedule, func(ord order.Order) {
			fmt.Printf("order %d is now %s\n", ord.ID, ord.Status)
		}, nil)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		watcher.Stop()
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storefront [-config path] <command>

commands:
  login <email>    authenticate (password via STOREFRONT_PASSWORD)
  logout           clear the stored credential
  medicines        list the catalog
  cart             show the current cart
  fees             show the delivery fee schedule
  orders           list your orders
  cancel <id>      request cancellation of an order
  watch <id>       poll an order until it reaches a terminal status
  prescriptions    list uploaded prescriptions
  upload <file>    upload a prescription document
  addresses        list saved delivery addresses`)
}
