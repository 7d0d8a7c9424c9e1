// Command reportctl generates monthly report snapshots outside the HTTP API.
//
//	reportctl generate --business 11 --year 2024 --month 3
//	reportctl bulk --year 2024 --month 3 --push-metrics
//	reportctl grant --user ayu --role analyst
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

	"github.com/spf13/pflag"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitPartial = 3
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	var (
		code int
		err  error
	)
	switch args[0] {
	case "generate":
		code, err = runGenerate(ctx, args[1:], stdout)
	case "bulk":
		code, err = runBulk(ctx, args[1:], stdout)
	case "grant":
		code, err = runGrant(ctx, args[1:], stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return exitUsage
	}

	if errors.Is(err, errUsage) || errors.Is(err, pflag.ErrHelp) {
		return exitUsage
	}
	if err != nil {
		fmt.Fprintf(stderr, "reportctl %s: %v\n", args[0], err)
		if code == exitOK {
			code = exitFailure
		}
	}
	return code
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: reportctl <command> [flags]

commands:
  generate  build the monthly report of one business
  bulk      build the monthly report of every active business
  grant     assign a reporting role to an admin user`)
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
