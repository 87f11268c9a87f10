package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var batteryCmd = &cobra.Command{
	Use:   "battery",
	Short: "Read the battery voltage",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		volts, err := c.GetBatteryVoltage(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Battery voltage: %.2fV\n", volts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batteryCmd)
}
