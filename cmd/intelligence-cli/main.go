package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/miradorstack/intelligence-core/internal/api"
	"github.com/miradorstack/intelligence-core/internal/cache"
	"github.com/miradorstack/intelligence-core/internal/config"
	"github.com/miradorstack/intelligence-core/internal/grpc/intelv1"
	"github.com/miradorstack/intelligence-core/internal/services"
	"github.com/miradorstack/intelligence-core/internal/utils"
)

const commandTimeout = 30 * time.Second

type options struct {
	format     string
	system     string
	limit      int
	offset     int
	startTime  string
	endTime    string
	sort       string
	addr       string
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	switch command {
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	case "summary", "drift", "performance", "signals", "systems", "patterns":
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", command)
		printUsage(stderr)
		return 1
	}

	opts, err := parseFlags(command, args[1:], stderr)
	if err != nil {
		return 1
	}
	if _, err := formatterFor(opts.format); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	core, closeFn, err := connect(ctx, opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeFn()

	result, err := execute(ctx, core, command, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := render(stdout, opts.format, result); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(command string, args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.format, "format", formatJSON, "output format: json, table or csv")
	fs.StringVar(&opts.system, "system", "", "filter signals by system name")
	fs.IntVar(&opts.limit, "limit", 0, "maximum number of signals per page (default 100)")
	fs.IntVar(&opts.offset, "offset", 0, "number of signals to skip")
	fs.StringVar(&opts.startTime, "start-time", "", "range start (RFC3339), requires --end-time")
	fs.StringVar(&opts.endTime, "end-time", "", "range end (RFC3339), requires --start-time")
	fs.StringVar(&opts.sort, "sort", "", "timestamp order: asc or desc (default desc)")
	fs.StringVar(&opts.addr, "addr", "", "gRPC address of a running intelligence-core")
	fs.StringVar(&opts.configPath, "config", "", "path to configuration file")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level for in-process runs")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments %v\n", fs.Args())
		return options{}, errors.New("unexpected arguments")
	}
	return opts, nil
}

// connect returns a remote client when --addr is set, otherwise an in-process
// façade over mock sources with one completed cycle.
func connect(ctx context.Context, opts options, stderr io.Writer) (api.Intelligence, func(), error) {
	if opts.addr != "" {
		conn, err := intelv1.Dial(opts.addr)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", opts.addr, err)
		}
		return newRemote(intelv1.NewClient(conn)), func() { _ = conn.Close() }, nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Sources.Mode = config.SourceModeMock

	logger := utils.NewWriterLogger(stderr, opts.logLevel, false)
	core, err := services.NewFromConfig(cfg, cache.NoopProvider{}, logger)
	if err != nil {
		return nil, nil, err
	}
	if _, err := core.RunCycle(ctx); err != nil {
		return nil, nil, err
	}
	return core, func() {}, nil
}

func execute(ctx context.Context, core api.Intelligence, command string, opts options) (any, error) {
	switch command {
	case "summary":
		return core.Summary(ctx)
	case "drift":
		return core.Drift(ctx)
	case "performance":
		return core.Performance(ctx)
	case "systems":
		return core.Systems(ctx)
	case "patterns":
		return core.Patterns(ctx)
	case "signals":
		params := api.QueryParams{
			System: opts.system,
			Start:  opts.startTime,
			End:    opts.endTime,
			Sort:   opts.sort,
		}
		if opts.limit != 0 {
			params.Limit = strconv.Itoa(opts.limit)
		}
		if opts.offset != 0 {
			params.Offset = strconv.Itoa(opts.offset)
		}
		q, err := api.ParseQuery(params)
		if err != nil {
			return nil, err
		}
		return core.QuerySignals(ctx, q)
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: intelligence-cli <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  summary       Latest intelligence summary")
	fmt.Fprintln(w, "  drift         Current drift analysis")
	fmt.Fprintln(w, "  performance   Current performance overview")
	fmt.Fprintln(w, "  signals       Query stored signals")
	fmt.Fprintln(w, "  systems       List systems with stored signals")
	fmt.Fprintln(w, "  patterns      Recurring anomaly patterns")
	fmt.Fprintln(w, "  help          Show this message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  --format      json (default), table or csv")
	fmt.Fprintln(w, "  --system      Filter signals by system name")
	fmt.Fprintln(w, "  --limit       Page size (default 100)")
	fmt.Fprintln(w, "  --offset      Page offset (default 0)")
	fmt.Fprintln(w, "  --start-time  Range start, RFC3339")
	fmt.Fprintln(w, "  --end-time    Range end, RFC3339")
	fmt.Fprintln(w, "  --sort        asc or desc (default desc)")
	fmt.Fprintln(w, "  --addr        Query a running server over gRPC instead of in-process mocks")
	fmt.Fprintln(w, "  --config      Configuration file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  intelligence-cli summary --format table")
	fmt.Fprintln(w, "  intelligence-cli signals --system benchmark --limit 20")
	fmt.Fprintln(w, "  intelligence-cli signals --start-time 2025-01-01T00:00:00Z --end-time 2025-01-02T00:00:00Z")
	fmt.Fprintln(w, "  intelligence-cli patterns --addr localhost:50051")
}
