package info

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ValentinKolb/sDB/cmd/util"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// InfoCmd prints metadata about the store
	InfoCmd = &cobra.Command{
		Use:   "info",
		Short: "Print information about the store",
		Long: `Print information about the store: file, collections, documents and the
distribution of serialized document sizes. With --metrics the process metrics
collected while loading the store are printed in the Prometheus text format.`,
		Args:    cobra.NoArgs,
		PreRunE: util.PrepareCommand,
		RunE:    run,
	}
)

func init() {
	key := "metrics"
	InfoCmd.Flags().Bool(key, false, util.WrapString("Also print the collected metrics in the Prometheus text format"))
	key = "json"
	InfoCmd.Flags().Bool(key, false, util.WrapString("Print the information as JSON"))
}

func run(_ *cobra.Command, _ []string) error {
	s, err := util.OpenStore()
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.Info()
	if err != nil {
		return err
	}

	if viper.GetBool("json") {
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Print(FormatInfo(info))
	}

	if viper.GetBool("metrics") {
		fmt.Println()
		metrics.WritePrometheus(os.Stdout, false)
	}
	return nil
}

// FormatInfo renders the store information in a human readable form
func FormatInfo(info store.Info) string {
	addField := func(name, value string) string {
		return fmt.Sprintf("  %-22s: %s\n", name, value)
	}

	out := color.New(color.Bold).Sprint("STORE") + "\n"
	out += addField("File", info.Path)
	out += addField("File Size", formatBytes(info.FileSizeBytes))
	out += addField("Checksum", info.Checksum)
	out += addField("Collections", fmt.Sprintf("%d", info.Collections))
	out += addField("Documents", fmt.Sprintf("%d", info.Documents))
	if !info.LastPersist.IsZero() {
		out += addField("Last Write", info.LastPersist.Format(time.RFC3339))
	}

	sizes := info.DocumentSizes
	out += "\n" + color.New(color.Bold).Sprint("DOCUMENT SIZES") + "\n"
	out += addField("Average", formatBytes(int64(sizes.Average)))
	out += addField("P50 (estimate)", formatBytes(int64(sizes.P50)))
	out += addField("P95 (estimate)", formatBytes(int64(sizes.P95)))
	out += addField("Max", formatBytes(int64(sizes.Max)))
	out += addField("Total", formatBytes(sizes.Total))
	return out
}

// formatBytes renders a byte count with a binary unit
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
