// Command xarm controls a Hiwonder xArm over USB HID or Bluetooth LE.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
