// Command notion-graph fetches a page or collection graph from the Notion API
// and prints a YAML summary of the assembled result.
package main

import (
	"errors"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/notion-graph/pkg/logging"
)

var version = "dev"

// CLI definition & global flags.
type CLI struct {
	LogLevel string           `help:"Log level (debug, info, warn, error)" default:"info" env:"NOTION_GRAPH_LOG_LEVEL"`
	Pretty   bool             `help:"Human-readable log output instead of JSON"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Fetch FetchCmd `cmd:"" default:"withargs" help:"Fetch a page or collection graph and print a run summary"`
}

// AfterApply runs after flag parsing; set up logging once.
func (c *CLI) AfterApply() error {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{Level: level, Pretty: c.Pretty, Output: os.Stderr})
	return nil
}

// loadEnvFile reads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func main() {
	envFile := os.Getenv("NOTION_GRAPH_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadEnvFile(envFile); err != nil {
		log.Fatal().Err(err).Str("file", envFile).Msg("Failed to load env file")
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("notion-graph"),
		kong.Description("Fetch a Notion page or database and assemble its full graph."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(ctx.Run())
}
