// objviewer opens a window showing a Wavefront OBJ mesh after vertex welding.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/korori/internal/config"
	"github.com/Faultbox/korori/internal/logger"
	"github.com/Faultbox/korori/internal/viewer"
)

func main() {
	config.ParseFlags()

	args := config.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: objviewer [flags] <file.obj>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	v, err := viewer.New(cfg, args[0])
	if err != nil {
		logger.Fatal("failed to open viewer", zap.Error(err))
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}
}
