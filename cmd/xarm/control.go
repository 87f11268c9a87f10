package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/spullara/go-xarm/xarm"
)

const jogStep = 5.0

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactively jog the arm",
	Long: `Jog the arm with the keyboard: arrow keys adjust elevation and
azimuth in 5 degree steps, "b" refreshes the battery reading, "o"
powers the servos off, "q" quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		m := initialControlModel(cmd.Context(), c)
		_, err = tea.NewProgram(m).Run()
		return err
	},
}

type lookDoneMsg struct {
	retries int
	err     error
}

type batteryMsg struct {
	volts float64
	err   error
}

type controlModel struct {
	ctx context.Context
	arm *xarm.Controller

	elevation float64
	azimuth   float64
	battery   float64
	retries   int
	busy      bool
	lastErr   error
	quitting  bool
}

func initialControlModel(ctx context.Context, arm *xarm.Controller) controlModel {
	return controlModel{ctx: ctx, arm: arm, elevation: 90}
}

func (m controlModel) Init() tea.Cmd {
	return m.readBattery()
}

func (m controlModel) look() tea.Cmd {
	elevation, azimuth := m.elevation, m.azimuth
	return func() tea.Msg {
		retries, err := m.arm.SetLook(m.ctx, elevation, azimuth)
		return lookDoneMsg{retries: retries, err: err}
	}
}

func (m controlModel) readBattery() tea.Cmd {
	return func() tea.Msg {
		volts, err := m.arm.GetBatteryVoltage(m.ctx)
		return batteryMsg{volts: volts, err: err}
	}
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "down", "left", "right":
			if m.busy {
				return m, nil
			}
			switch msg.String() {
			case "up":
				m.elevation = min(m.elevation+jogStep, xarm.MaxElevation)
			case "down":
				m.elevation = max(m.elevation-jogStep, xarm.MinElevation)
			case "left":
				m.azimuth = max(m.azimuth-jogStep, -125)
			case "right":
				m.azimuth = min(m.azimuth+jogStep, 125)
			}
			m.busy = true
			return m, m.look()
		case "b":
			return m, m.readBattery()
		case "o":
			m.lastErr = m.arm.ServoOff(m.ctx)
			return m, nil
		}

	case lookDoneMsg:
		m.busy = false
		m.retries = msg.retries
		m.lastErr = msg.err
		return m, nil

	case batteryMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.battery = msg.volts
		}
		return m, nil
	}

	return m, nil
}

var (
	controlTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	controlDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	controlErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m controlModel) View() string {
	if m.quitting {
		return ""
	}

	s := controlTitleStyle.Render("xArm control") + "\n\n"
	s += fmt.Sprintf("Elevation: %6.1f°\n", m.elevation)
	s += fmt.Sprintf("Azimuth:   %6.1f°\n", m.azimuth)
	s += fmt.Sprintf("Battery:   %6.2fV\n", m.battery)
	s += fmt.Sprintf("Retries:   %6d\n", m.retries)
	if m.busy {
		s += "\nmoving...\n"
	}
	if m.lastErr != nil {
		s += "\n" + controlErrStyle.Render(m.lastErr.Error()) + "\n"
	}
	s += "\n" + controlDimStyle.Render("arrows: jog  b: battery  o: servos off  q: quit")
	return s
}

func init() {
	rootCmd.AddCommand(controlCmd)
}
