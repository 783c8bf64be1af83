// cmd/pzem/read.go
package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/tamzrod/pzem004t/internal/pzem"
)

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Read one measurement frame and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openMeter(a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			m, ok := client.Update()
			if !ok {
				return errors.New("read failed")
			}

			renderMeasurement(cmd.OutOrStdout(), a.cfg.Meter.ID, m)
			return nil
		},
	}
}

func renderMeasurement(w io.Writer, meterID string, m pzem.Measurement) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(meterID)
	tw.AppendHeader(table.Row{"Quantity", "Value", "Unit"})
	tw.AppendRows([]table.Row{
		{"Voltage", fmt.Sprintf("%.1f", m.Voltage), "V"},
		{"Current", fmt.Sprintf("%.3f", m.Current), "A"},
		{"Power", fmt.Sprintf("%.1f", m.Power), "W"},
		{"Energy", fmt.Sprintf("%d", m.Energy), "Wh"},
		{"Frequency", fmt.Sprintf("%.1f", m.Frequency), "Hz"},
		{"Power factor", fmt.Sprintf("%.2f", m.PowerFactor), ""},
		{"Alarm", alarmText(m), ""},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	tw.Render()
}

func alarmText(m pzem.Measurement) string {
	if m.Alarmed() {
		return "ON"
	}
	return "off"
}
