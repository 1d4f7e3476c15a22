package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"dailystudy/internal/cli/command"
	"dailystudy/internal/cli/config"
	httpclient "dailystudy/internal/cli/http"
	"dailystudy/internal/cli/repl"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout)
	session := repl.New(client, command.Registry(), cfg.PrettyJSON != nil && *cfg.PrettyJSON, os.Stdin, os.Stdout)

	// Arguments run a single command, e.g. `cli crawl run`.
	if args := flag.Args(); len(args) > 0 {
		session.Exec(context.Background(), joinArgs(args))
		return
	}
	session.Run(context.Background())
}

// joinArgs rebuilds a command line that shlex splits back into args.
func joinArgs(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.ContainsAny(arg, " \t\"'\\") {
			arg = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(arg) + `"`
		}
		quoted = append(quoted, arg)
	}
	return strings.Join(quoted, " ")
}
