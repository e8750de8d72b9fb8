package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dtlaine/huedevice/internal/config"
	"github.com/dtlaine/huedevice/internal/huedevice"
)

var wsPort int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the device and feed it frames from the WebSocket ingest server",
	Long:  `Loads the configuration file, connects to the bridge, and streams frames received over WebSocket into the device until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := loadRawConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}

		cfg, warnings := config.Decode(raw)
		for _, w := range warnings {
			logger.Warn().Msg(w)
		}

		device, err := huedevice.Init(cfg, logger)
		if err != nil {
			return fmt.Errorf("init device: %w", err)
		}
		defer func() {
			if err := device.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to restore original state on shutdown")
			}
		}()

		device.OnStateChanged(func(on bool) {
			logger.Info().Bool("on", on).Msg("device state changed")
		})

		srv := newIngestServer(wsPort, len(cfg.LightIDs), device, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.Error().Err(err).Msg("ingest server stopped")
			}
		}()
		logger.Info().Int("port", wsPort).Msg("ingest server listening")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info().Msg("shutting down")
		return srv.Close()
	},
}

func init() {
	runCmd.Flags().IntVar(&wsPort, "ws-port", 8787, "port to listen for frame ingest WebSocket connections on")
}

func loadRawConfig(path string) (config.RawConfig, error) {
	var raw config.RawConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return raw, err
	}
	err = json.Unmarshal(data, &raw)
	return raw, err
}
