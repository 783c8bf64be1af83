// cmd/pzem/commands.go
package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tamzrod/pzem004t/internal/config"
	"github.com/tamzrod/pzem004t/internal/pzem"
)

func newResetEnergyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-energy",
		Short: "Clear the meter's energy counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openMeter(a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			if !client.ResetEnergy() {
				return errors.New("reset-energy failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "energy counter reset")
			return nil
		},
	}
}

func newSetAddressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-address <addr>",
		Short: "Write a new slave address (0x01..0xF7)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			if addr < pzem.MinAddress || addr > pzem.MaxAddress {
				return fmt.Errorf("slave address 0x%02x out of range 0x%02x..0x%02x", addr, pzem.MinAddress, pzem.MaxAddress)
			}

			client, err := openMeter(a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			if !client.SetAddress(addr) {
				return errors.New("set-address failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "slave address set to 0x%02X\n", addr)
			return nil
		},
	}
}

func newSetAlarmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-alarm <watts>",
		Short: "Write the power alarm threshold in watts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			watts, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid threshold %q: %w", args[0], err)
			}

			client, err := openMeter(a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			if !client.SetAlarmThreshold(uint16(watts)) {
				return errors.New("set-alarm failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "alarm threshold set to %d W\n", watts)
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the meter's slave address and alarm threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openMeter(a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			addr := client.Address()
			threshold := client.AlarmThreshold()
			if addr == pzem.InvalidAddress && math.IsNaN(threshold) {
				return errors.New("info failed: meter did not answer")
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"Setting", "Value"})
			tw.AppendRow(table.Row{"Slave address", formatAddress(addr)})
			tw.AppendRow(table.Row{"Alarm threshold", formatThreshold(threshold)})
			tw.Render()
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.Dump(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func formatAddress(addr int) string {
	if addr == pzem.InvalidAddress {
		return "n/a"
	}
	return fmt.Sprintf("0x%02X", addr)
}

func formatThreshold(w float64) string {
	if math.IsNaN(w) {
		return "n/a"
	}
	return fmt.Sprintf("%.0f W", w)
}
