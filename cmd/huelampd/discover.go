package main

import (
	"fmt"

	"github.com/amimof/huego"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover a Hue bridge on the local network",
	Long:  `Uses N-UPnP discovery to find a bridge and print its address, for use as the config file's "output" key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := huego.Discover()
		if err != nil {
			return fmt.Errorf("discover bridge: %w", err)
		}
		fmt.Printf("bridge found: %s (id %s)\n", b.Host, b.ID)
		return nil
	},
}

var listLightsCmd = &cobra.Command{
	Use:   "list-lights",
	Short: "List the lights known to a bridge, with their ids and model ids",
	Long:  `Connects to the bridge named by --config's "output"/"username" keys and prints every light's id, model id, and name — the values needed to populate lightIds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := loadRawConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}

		b := huego.New(raw.Output, raw.Username)
		lights, err := b.GetLights()
		if err != nil {
			return fmt.Errorf("get lights: %w", err)
		}

		for _, l := range lights {
			fmt.Printf("%-4d %-12s %s\n", l.ID, l.ModelID, l.Name)
		}
		return nil
	},
}
