package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Temutjin2k/driver-engine/config"
	"github.com/Temutjin2k/driver-engine/internal/app"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	"github.com/spf13/pflag"
)

func main() {
	flagSet := pflag.NewFlagSet("driver", pflag.ContinueOnError)
	configPath := flagSet.String("config-path", "config.yaml", "path to the config yaml file")
	mode := flagSet.String("mode", "", "service mode: driver-agent or offer-sweeper")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return
	}

	ctx := context.Background()
	log := logger.InitLogger("driver", logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath, *mode)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		printHelp(flagSet)
		os.Exit(1)
	}

	log = logger.InitLogger(string(cfg.Mode), cfg.LogLevel)
	config.PrintConfig(cfg, log)

	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprint(os.Stderr, config.HelpMessage)
	fmt.Fprint(os.Stderr, flagSet.FlagUsages())
}
