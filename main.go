package main

import (
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/chazu/roomcraft/pkg/config"
	"github.com/chazu/roomcraft/pkg/editor"
	"github.com/chazu/roomcraft/pkg/logging"
	"github.com/chazu/roomcraft/pkg/store"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	configPath := flag.String("config", "", "path to a roomcraft.yaml config file")
	watch := flag.Bool("watch", true, "reload the furniture catalog when the config file changes")
	flag.Parse()

	if err := run(*configPath, *watch); err != nil {
		fmt.Fprintln(os.Stderr, "roomcraft:", err)
		os.Exit(1)
	}
}

func run(configPath string, watch bool) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.Must(cfg.Log.Level, cfg.Log.Format, "roomcraft")
	defer logger.Sync()

	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	session, err := editor.New(editor.OptionsFromConfig(cfg, st, logger))
	if err != nil {
		st.Close()
		return fmt.Errorf("create session: %w", err)
	}
	app := NewApp(session, cfg.Catalog, logger)

	if watch && configPath != "" {
		w, err := config.NewWatcher(configPath, loader, logger)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		app.watch(w)
		if err := w.Start(); err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer w.Stop()
	}

	logger.Info("starting roomcraft",
		zap.String("config", configPath),
		zap.String("store", cfg.Store.Backend),
		zap.Int("mesh_resolution", cfg.Mesh.Resolution))

	return wails.Run(&options.App{
		Title:  "Roomcraft",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
}
