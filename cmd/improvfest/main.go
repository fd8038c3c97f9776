package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"improvfest/internal/config"
	"improvfest/internal/generator"
	appLog "improvfest/internal/log"
	"improvfest/internal/web"
)

type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	once       bool
}

func main() {
	os.Exit(run())
}

func run() int {
	defer appLog.Sync()

	flags := parseFlags()

	if err := config.LoadEnvFile(flags.envPath); err != nil {
		appLog.Error("failed to load env file", err, "env_path", flags.envPath)
		return 1
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}
	conf.ApplyEnv(os.LookupEnv)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"source", conf.Source,
		"output_dir", conf.OutputDir,
		"refresh", conf.RefreshCron,
		"timezone", conf.Timezone,
		"listen", conf.Listen,
		"image_concurrency", conf.Image.Concurrency,
		"facebook_fallback", conf.Image.FacebookToken != "",
		"preview", conf.Preview.Enabled,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := generator.NewFromConfig(ctx, conf)
	if err != nil {
		appLog.Error("invalid configuration", err)
		return 1
	}

	if flags.once {
		fmt.Println("Generating static festivals HTML...")
		if _, err := gen.Run(ctx); err != nil {
			appLog.Error("generation failed", err)
			return 1
		}
		fmt.Println("Done! Static index.html updated.")
		return 0
	}

	return daemon(ctx, conf, gen)
}

// siteGenerator is what daemon mode drives: scheduled runs plus the web API.
type siteGenerator interface {
	web.Runner
	Run(ctx context.Context) (generator.Report, error)
}

// daemon regenerates on the configured cron schedule and, when a listen
// address is set, serves the output until ctx is canceled. The initial
// generation runs in the background so the server is reachable at once.
func daemon(ctx context.Context, conf *config.Config, gen siteGenerator) int {
	sched := cron.New(
		cron.WithLocation(conf.Location()),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		if _, err := gen.Run(ctx); err != nil {
			appLog.Error("scheduled generation failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		return 1
	}

	// Generate immediately so the site exists before the first tick.
	initial := make(chan struct{})
	go func() {
		defer close(initial)
		if _, err := gen.Run(ctx); err != nil {
			appLog.Error("initial generation failed", err)
		}
	}()

	sched.Start()
	appLog.Info("scheduler started", "refresh", conf.RefreshCron)

	exit := 0
	if conf.Listen != "" {
		if err := web.Start(ctx, conf, gen); err != nil {
			appLog.Error("HTTP server failed", err, "listen", conf.Listen)
			exit = 1
		}
	} else {
		<-ctx.Done()
	}

	appLog.Info("shutting down")
	// Wait for in-flight runs to finish.
	<-sched.Stop().Done()
	<-initial
	appLog.Info("improvfest exiting")
	return exit
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Path to optional .env file with secrets")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one generation and exit")

	flag.Parse()

	return cfg
}

// cronLogger routes robfig/cron's logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	if err == nil {
		err = errors.New(msg)
	}
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
