package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/spullara/go-xarm/internal/log"
	"github.com/spullara/go-xarm/transports"
	"github.com/spullara/go-xarm/xarm"
)

var (
	logLevel    string
	maxRetries  int
	scanTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "xarm",
	Short: "Control a Hiwonder xArm robotic arm",
	Long: `xarm - command line control for the Hiwonder xArm.

Connects over USB HID when the arm is plugged in, falling back to a
Bluetooth LE scan for an advertising arm. All commands talk to the
same controller API; movement commands converge with retries and can
use learned per-servo calibration (see "xarm calibrate").`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Init(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "max-retries", 5, "Convergence retry depth per movement batch")
	rootCmd.PersistentFlags().DurationVar(&scanTimeout, "scan-timeout", 5*time.Second, "Bluetooth discovery scan timeout")
}

// connect opens the arm for a command's lifetime.
func connect(ctx context.Context) (*xarm.Controller, error) {
	return xarm.Connect(ctx, xarm.Config{
		Link:       transports.Config{ScanTimeout: scanTimeout},
		MaxRetries: maxRetries,
		Logger:     log.L(),
	})
}
