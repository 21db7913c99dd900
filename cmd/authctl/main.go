package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/loginsys/authd/internal/cli"
	"github.com/loginsys/authd/internal/flagx"
	"github.com/loginsys/authd/internal/logging"
	"github.com/loginsys/authd/internal/server/auth"
	"github.com/loginsys/authd/internal/server/config"
)

func main() {

	ctx := context.Background()

	// config flags come before the command; the config layer sees only those
	flags, command := flagx.SplitCommand(os.Args[1:])
	os.Args = append([]string{os.Args[0]}, flags...)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(cfg.LogBackend, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := cli.NewApp(os.Stdin, os.Stdout, auth.NewPasswordHasher(cfg.BcryptCost), cli.PostgresOpener(cfg), logger)

	if err := app.Run(ctx, command); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			log.Printf("%v", err)
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}

}
