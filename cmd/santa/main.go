package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/urfave/cli/v2"

	"secretsanta/internal/config"
)

var (
	VERSION    string
	COMMIT_ID  string
	BUILD_DATE string
)

func main() {
	app := &cli.App{
		Name:    "santa",
		Usage:   "Run a Secret Santa gift exchange",
		Version: fmt.Sprintf("%s_%s (Compiled: %s)", VERSION, COMMIT_ID, BUILD_DATE),
		Flags:   globalFlags(),
		Before: func(c *cli.Context) error {
			verbose := c.Bool("verbose")
			logger.Init("santa", verbose, false, io.Discard)
			if !verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			watchCommand(),
		},
	}
	app.Compiled, _ = time.Parse(time.RFC3339, BUILD_DATE)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags mirror the SANTA_* environment. A flag only wins over the
// environment when it is given explicitly.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "env-file", Usage: "dotenv `file` to load before reading the environment", Value: ".env"},
		&cli.StringFlag{Name: "addr", Usage: "listen `address`"},
		&cli.StringFlag{Name: "store", Usage: "event store: memory, sqlite or postgres"},
		&cli.StringFlag{Name: "dsn", Usage: "database `DSN` for the sqlite or postgres store"},
		&cli.StringFlag{Name: "event-key", Usage: "`key` of the shared event document"},
		&cli.StringFlag{Name: "admin-name", Usage: "administrator `name`"},
		&cli.StringFlag{Name: "admin-password", Usage: "administrator `password`"},
		&cli.DurationFlag{Name: "poll-interval", Usage: "how often the sql store is polled for changes"},
		&cli.StringFlag{Name: "hint-api-key", Usage: "API `key` for the hint generator; static hints without it"},
		&cli.StringFlag{Name: "hint-base-url", Usage: "base `URL` of an OpenAI compatible API"},
		&cli.StringFlag{Name: "hint-model", Usage: "chat `model` used for hints"},
		&cli.StringFlag{Name: "hint-language", Usage: "`language` hints are written in"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log info messages to stdout", EnvVars: []string{"SANTA_VERBOSE"}},
	}
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return config.Config{}, err
	}

	strs := map[string]*string{
		"addr":           &cfg.Addr,
		"store":          &cfg.Store,
		"dsn":            &cfg.DSN,
		"event-key":      &cfg.EventKey,
		"admin-name":     &cfg.AdminName,
		"admin-password": &cfg.AdminPassword,
		"hint-api-key":   &cfg.HintAPIKey,
		"hint-base-url":  &cfg.HintBaseURL,
		"hint-model":     &cfg.HintModel,
		"hint-language":  &cfg.HintLanguage,
	}
	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if c.IsSet("poll-interval") {
		cfg.PollInterval = c.Duration("poll-interval")
	}
	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}
	return cfg, nil
}
