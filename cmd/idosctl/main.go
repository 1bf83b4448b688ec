// Command idosctl drives the API from a terminal with the same local
// validation and optimistic bookkeeping as the web front end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jesser-selmi/idos-front/internal/client"
	"github.com/jesser-selmi/idos-front/internal/config"
	"github.com/jesser-selmi/idos-front/internal/request"
	"github.com/jesser-selmi/idos-front/internal/session"
	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", os.Getenv("IDOS_EMAIL"), "login email")
	password := flag.String("password", os.Getenv("IDOS_PASSWORD"), "login password")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.LoadClient()
	if err != nil {
		logger.Fatal("load client config failed", zap.Error(err))
	}

	ctx := context.Background()
	api := client.New(cfg.BaseURL, cfg.Timeout, client.WithLogger(logger))

	sess, err := api.Login(ctx, *email, *password)
	if err != nil {
		fail(err)
	}

	err = run(ctx, api, sess.Role, args, logger)
	_ = api.Logout(ctx)
	if err != nil {
		fail(err)
	}
}

func run(ctx context.Context, api *client.Client, role session.Role, args []string, logger *zap.Logger) error {
	switch args[0] {
	case "requests":
		book := client.NewRequestBook(api, nil)
		if err := book.Refresh(ctx); err != nil {
			return err
		}
		printEntries(book.Entries())

	case "submit":
		fs := flag.NewFlagSet("submit", flag.ExitOnError)
		typ := fs.String("type", string(request.TypeTelework), "TELEWORK_REQUEST or LEAVE_REQUEST")
		date := fs.String("date", "", "start date, YYYY-MM-DD")
		days := fs.Int("duration", 1, "duration in days")
		_ = fs.Parse(args[1:])

		book := client.NewRequestBook(api, nil)
		if err := book.Refresh(ctx); err != nil {
			return err
		}
		entry, err := book.Submit(ctx, request.CreateRequestInput{Type: *typ, Date: *date, Duration: request.Days(*days)})
		if err != nil {
			book.Rollback(entry.Request.ID)
			return err
		}
		printEntries([]client.Entry{entry})

	case "board":
		fs := flag.NewFlagSet("board", flag.ExitOnError)
		typ := fs.String("type", "", "only list this request type")
		_ = fs.Parse(args[1:])

		board := client.NewReviewBoard(api, role, request.ListFilter{Type: request.Type(*typ)}, logger)
		if err := board.Refresh(ctx); err != nil {
			return err
		}
		printEntries(board.Entries())

	case "review":
		fs := flag.NewFlagSet("review", flag.ExitOnError)
		id := fs.String("id", "", "request id")
		actionFlag := fs.String("action", "", "ACCEPT or REJECT")
		_ = fs.Parse(args[1:])

		action, ok := request.ParseAction(*actionFlag)
		if !ok {
			return fmt.Errorf("unknown action %q", *actionFlag)
		}

		board := client.NewReviewBoard(api, role, request.ListFilter{}, logger)
		if err := board.Refresh(ctx); err != nil {
			return err
		}
		entry, err := board.Review(ctx, *id, action)
		if err != nil {
			return err
		}
		printEntries([]client.Entry{entry})

	default:
		usage()
		os.Exit(2)
	}
	return nil
}

func printEntries(entries []client.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMPLOYEE\tTYPE\tFROM\tTO\tSTATUS\tSTATE")
	for _, e := range entries {
		r := e.Request
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.EmployeeName, r.Type, r.Date, r.EndDate, r.StatusLabel, e.State)
	}
	_ = w.Flush()
}

func fail(err error) {
	var vErr *client.ValidationError
	var apiErr *client.Error
	switch {
	case errors.As(err, &vErr):
		for field, msg := range vErr.Fields {
			fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
		}
	case errors.As(err, &apiErr) && apiErr.Retryable:
		fmt.Fprintf(os.Stderr, "%v (temporary, try again)\n", err)
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: idosctl [-email E -password P] <command> [flags]

Commands:
  requests                                   List your requests
  submit -type T -date YYYY-MM-DD -duration N
                                             Submit a request
  board [-type T]                            List requests awaiting review
  review -id ID -action ACCEPT|REJECT        Review a request

Environment:
  CLIENT_BASE_URL, CLIENT_TIMEOUT, IDOS_EMAIL, IDOS_PASSWORD`)
}
