package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var lookCmd = &cobra.Command{
	Use:   "look <elevation> <azimuth>",
	Short: "Point the arm at an elevation and azimuth",
	Long: `Point the arm. Elevation is clamped to [-60, 90] degrees and
decomposed into shoulder, elbow, and wrist angles; azimuth drives the
base spin directly. All four servos move in one batched command.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		elevation, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid elevation %q: %w", args[0], err)
		}
		azimuth, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid azimuth %q: %w", args[1], err)
		}

		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		retries, err := c.SetLook(cmd.Context(), elevation, azimuth)
		if err != nil {
			return err
		}
		fmt.Printf("Looking at elevation %.1f°, azimuth %.1f° (%d retries)\n", elevation, azimuth, retries)
		return nil
	},
}

var offCmd = &cobra.Command{
	Use:   "off [servo...]",
	Short: "Power off servos (all six when none are given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		servos, err := parseServos(args)
		if err != nil {
			return err
		}

		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		return c.ServoOff(cmd.Context(), servos...)
	},
}

func init() {
	rootCmd.AddCommand(lookCmd)
	rootCmd.AddCommand(offCmd)
}
