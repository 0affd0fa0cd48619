// Command idledger generates an identifier, records it in the local ledger,
// and prints it. With --stats it prints ledger counts instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	otelAdapter "github.com/neomorfeo/idledger/internal/adapter/otel"

	"github.com/neomorfeo/idledger/internal/adapter/idgen"
	"github.com/neomorfeo/idledger/internal/adapter/logging"
	"github.com/neomorfeo/idledger/internal/app"
	"github.com/neomorfeo/idledger/internal/bootstrap"
	"github.com/neomorfeo/idledger/internal/config"
	"github.com/neomorfeo/idledger/internal/domain"

	handler "github.com/neomorfeo/idledger/internal/adapter/http"
)

// Process exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitDuplicate = 3
)

// newGenerator is swapped in tests to force collisions.
var newGenerator = func() domain.IdentifierGenerator { return idgen.New() }

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	variant  string
	category string
	prefix   string
	stats    bool
	check    string
	db       string
	attempts int
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("idledger", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.variant, "type", "", "identifier type: v1, v4 or timestamp")
	fs.StringVar(&opts.category, "category", "", "optional category stored with the identifier")
	fs.StringVar(&opts.prefix, "prefix", "", "optional alphanumeric prefix (max 5 chars)")
	fs.BoolVar(&opts.stats, "stats", false, "print ledger statistics as JSON instead of generating")
	fs.StringVar(&opts.check, "check", "", "report whether VALUE is already recorded")
	fs.StringVar(&opts.db, "db", "", "ledger database path (default $IDLEDGER_DATABASE_PATH or idledger.db)")
	fs.IntVar(&opts.attempts, "attempts", 0, "max generation attempts on duplicates (default $IDLEDGER_MAX_ATTEMPTS or 3)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return options{}, err
		}
		return options{}, &domain.InvalidArgumentError{Field: "arguments", Reason: err.Error()}
	}
	if fs.NArg() > 0 {
		return options{}, &domain.InvalidArgumentError{Field: "arguments", Reason: fmt.Sprintf("unexpected %q", fs.Arg(0))}
	}
	if fs.Changed("attempts") && opts.attempts < 1 {
		return options{}, &domain.InvalidArgumentError{Field: "attempts", Reason: "must be at least 1"}
	}
	if !opts.stats && opts.check == "" && opts.variant == "" {
		return options{}, &domain.InvalidArgumentError{Field: "type", Reason: "required unless --stats or --check is given"}
	}
	if opts.variant != "" {
		if _, err := domain.ParseVariant(opts.variant); err != nil {
			return options{}, err
		}
	}
	return opts, nil
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return report(stderr, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return report(stderr, &domain.InvalidArgumentError{Field: "configuration", Reason: err.Error()})
	}
	if opts.db != "" {
		cfg.DatabasePath = opts.db
	}
	if opts.attempts > 0 {
		cfg.MaxAttempts = opts.attempts
	}

	logger, closeLog, err := logging.New(stderr, logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return report(stderr, &domain.InvalidArgumentError{Field: "logging", Reason: err.Error()})
	}
	defer closeLog()

	otelCfg := otelAdapter.ConfigFromEnv()
	otelCfg.Writer = stderr

	stack, err := bootstrap.Open(ctx, cfg, otelCfg, logger, newGenerator())
	if err != nil {
		return report(stderr, err)
	}
	defer func() {
		if err := stack.Close(ctx); err != nil {
			logger.Error("closing ledger", "error", err)
		}
	}()

	switch {
	case opts.stats:
		err = printStats(ctx, stack.Service, stdout)
	case opts.check != "":
		err = printCheck(ctx, stack.Service, opts.check, stdout)
	default:
		err = generate(ctx, stack.Service, opts, stdout)
	}
	if err != nil {
		return report(stderr, err)
	}
	return exitOK
}

func generate(ctx context.Context, svc *app.LedgerService, opts options, stdout io.Writer) error {
	record, err := svc.Generate(ctx, app.GenerateRequest{
		Variant:  domain.Variant(opts.variant),
		Category: opts.category,
		Prefix:   opts.prefix,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "Generated UUID: %s\n", record.Value)
	return err
}

func printStats(ctx context.Context, svc *app.LedgerService, stdout io.Writer) error {
	summary, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(handler.ToStatsResponse(summary), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(out))
	return err
}

func printCheck(ctx context.Context, svc *app.LedgerService, value string, stdout io.Writer) error {
	exists, err := svc.Check(ctx, value)
	if err != nil {
		return err
	}
	state := "not found"
	if exists {
		state = "exists"
	}
	_, err = fmt.Fprintf(stdout, "%s %s\n", value, state)
	return err
}

// report prints a one-line error and maps it to an exit code.
func report(stderr io.Writer, err error) int {
	var (
		argErr     *domain.InvalidArgumentError
		dupErr     *domain.DuplicateIdentifierError
		storageErr *domain.StorageError
	)
	switch {
	case errors.As(err, &argErr):
		fmt.Fprintf(stderr, "Input validation error: %v\n", argErr)
		return exitUsage
	case errors.As(err, &dupErr):
		fmt.Fprintf(stderr, "Duplicate identifier: %v\n", dupErr)
		return exitDuplicate
	case errors.As(err, &storageErr):
		fmt.Fprintf(stderr, "Storage error: %s: %v\n", storageErr.Op, storageErr.Err)
		return exitFailure
	default:
		fmt.Fprintf(stderr, "Identifier generation failed: %v\n", err)
		return exitFailure
	}
}
