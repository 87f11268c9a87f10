package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spullara/go-xarm/xarm"
)

var positionCmd = &cobra.Command{
	Use:   "position [servo...]",
	Short: "Read current servo positions",
	Long: `Read current positions in degrees. With no arguments, all six
servos are queried in one batch. Servos may be named (e.g. wrist_tilt)
or given by wire id (1-6).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		servos, err := parseServos(args)
		if err != nil {
			return err
		}
		if len(servos) == 0 {
			servos = xarm.Servos()
		}

		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		positions, err := c.GetPositions(cmd.Context(), servos...)
		if err != nil {
			return err
		}
		for _, s := range servos {
			angle, ok := positions[s]
			if !ok {
				fmt.Printf("%-14s (no response)\n", s)
				continue
			}
			fmt.Printf("%-14s %7.2f°\n", s, angle)
		}
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <servo> <angle>",
	Short: "Move one servo to an angle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		servos, err := parseServos(args[:1])
		if err != nil {
			return err
		}
		angle, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid angle %q: %w", args[1], err)
		}

		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		retries, err := c.SetPosition(cmd.Context(), servos[0], angle)
		if err != nil {
			return err
		}
		fmt.Printf("Moved %s to %.1f° (%d retries)\n", servos[0], angle, retries)
		return nil
	},
}

func parseServos(args []string) ([]xarm.Servo, error) {
	servos := make([]xarm.Servo, 0, len(args))
	for _, arg := range args {
		if s, ok := xarm.ServoByName(arg); ok {
			servos = append(servos, s)
			continue
		}
		id, err := strconv.Atoi(arg)
		if err != nil || id < 1 || id > 6 {
			return nil, fmt.Errorf("unknown servo %q", arg)
		}
		servos = append(servos, xarm.Servo(id))
	}
	return servos, nil
}

func init() {
	rootCmd.AddCommand(positionCmd)
	rootCmd.AddCommand(moveCmd)
}
