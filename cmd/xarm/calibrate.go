package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/spullara/go-xarm/xarm"
)

// calibrationTargets is the sweep each joint runs while collecting
// observations: large and small movements in both directions.
var calibrationTargets = []float64{30, -30, 60, -60, 15, -15, 0}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Learn per-servo movement corrections",
	Long: `Run a calibration sweep. Each joint is moved through a series of
targets while movement errors are recorded, then directional percentage
corrections are derived and applied to subsequent movements for the
lifetime of the process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		servos := []xarm.Servo{xarm.WristTilt, xarm.ElbowTilt, xarm.ShoulderTilt, xarm.BaseSpin}

		c.StartCollectingData()
		for _, target := range calibrationTargets {
			for _, s := range servos {
				if _, err := c.SetPosition(cmd.Context(), s, target); err != nil {
					return fmt.Errorf("calibration sweep %s to %.0f: %w", s, target, err)
				}
			}
		}
		c.CalculateCalibration()

		fmt.Println(renderCalibration(c.CalibrationStatus()))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show battery voltage",
	Long: `Report the arm's battery voltage. Calibration corrections live only
for the lifetime of the process that ran the sweep, so they are shown
by the calibrate command rather than here.`,
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
		fmt.Printf("Battery: %.2fV\n", volts)
		return nil
	},
}

var (
	calHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	calNameStyle   = lipgloss.NewStyle().Width(14)
	calValueStyle  = lipgloss.NewStyle().Width(10).Align(lipgloss.Right)
)

func renderCalibration(status map[xarm.Servo]xarm.ServoCalibration) string {
	out := lipgloss.JoinHorizontal(lipgloss.Top,
		calHeaderStyle.Width(14).Render("Servo"),
		calHeaderStyle.Width(10).Align(lipgloss.Right).Render("Pos %"),
		calHeaderStyle.Width(10).Align(lipgloss.Right).Render("Neg %"),
	)
	for _, s := range xarm.Servos() {
		cal := status[s]
		out += "\n" + lipgloss.JoinHorizontal(lipgloss.Top,
			calNameStyle.Render(s.String()),
			calValueStyle.Render(fmt.Sprintf("%+.2f", cal.Positive)),
			calValueStyle.Render(fmt.Sprintf("%+.2f", cal.Negative)),
		)
	}
	return out
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(statusCmd)
}
