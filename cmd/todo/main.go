package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/idilsaglam/todosync/internal/cli"
	"github.com/idilsaglam/todosync/internal/config"
	"github.com/idilsaglam/todosync/internal/facade"
	"github.com/idilsaglam/todosync/internal/store"
	"github.com/idilsaglam/todosync/internal/transport"
	"github.com/idilsaglam/todosync/internal/tui"
	"github.com/idilsaglam/todosync/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	configPath := flag.String("config", "", "config file (default ~/.todosync/config.yaml)")
	apiURL := flag.String("api", "", "API base URL")
	pageSize := flag.Int("page-size", 0, "todos per page")
	theme := flag.String("theme", "", "classic | neon | mono")
	color := flag.String("color", "", "auto | always | never")
	noColor := flag.Bool("no-color", false, "same as -color never")
	verbose := flag.Bool("v", false, "debug logging")
	lastWins := flag.Bool("last-arrival-wins", false, "let slower list responses overwrite newer ones")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	groupPending := flag.Bool("group", false, "group output by pending/done")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		ui.Fail("config: " + err.Error())
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api":
			cfg.BaseURL = *apiURL
		case "page-size":
			cfg.PageSize = *pageSize
		case "theme":
			cfg.Theme = *theme
		case "color":
			cfg.Color = *color
		case "no-color":
			if *noColor {
				cfg.Color = "never"
			}
		case "v":
			if *verbose {
				cfg.LogLevel = "debug"
			}
		case "last-arrival-wins":
			cfg.LastArrivalWins = *lastWins
		}
	})
	if err := cfg.Validate(); err != nil {
		ui.Fail("config: " + err.Error())
		os.Exit(2)
	}
	level, _ := cfg.SlogLevel()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	ui.SetTheme(cfg.Theme)
	if force, disable, _ := cfg.ColorForcing(); force || disable {
		ui.SetColorForcing(force, disable)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg, log)
	}

	api := transport.New(cfg.BaseURL,
		transport.WithTimeout(cfg.Timeout),
		transport.WithLogger(log),
		transport.WithMetrics(transport.NewMetrics(reg)),
	)
	storeOpts := []store.Option{store.WithLogger(log)}
	if cfg.LastArrivalWins {
		storeOpts = append(storeOpts, store.WithLastArrivalWins())
	}

	// The full-screen view shows notices in its status line; everything
	// else prints them.
	var notes facade.Notifier = ui.Notices{}
	tuiNotes := tui.NewNotifier()
	if args[0] == "ui" {
		notes = tuiNotes
	}
	f := facade.New(
		store.NewTodoStore(api, cfg.PageSize, storeOpts...),
		store.NewCategoryStore(api, storeOpts...),
		facade.WithNotifier(notes),
		facade.WithLogger(log),
	)

	code := cli.Run(ctx, args, cli.Options{
		Group:  *groupPending,
		Facade: f,
		Interactive: func(ctx context.Context) error {
			return tui.Run(ctx, f, tuiNotes)
		},
	})
	stop()
	os.Exit(code)
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := fasthttp.ListenAndServe(addr, h); err != nil {
		log.Error("metrics server stopped", "addr", addr, "err", err)
	}
}
