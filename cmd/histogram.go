package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fluxdec/fluxdec/fluxlog"
)

var histogramCmd = &cobra.Command{
	Use:   "histogram FILE",
	Short: "Show the flux interval histogram of a capture",
	Long: "Print the interval histogram of a flux capture in 1µs bins, plus the\n" +
		"detected encoding and density. Useful for eyeballing unknown disks.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		buf, err := fluxlog.Load(args[0])
		cobra.CheckErr(err)

		bins := buf.Histogram(1000, 24)
		var max uint32
		for _, c := range bins {
			if c > max {
				max = c
			}
		}
		for i, c := range bins {
			if c == 0 {
				continue
			}
			bar := ""
			if max > 0 {
				bar = strings.Repeat("#", int(c*50/max))
			}
			fmt.Printf("%2dµs %7d %s\n", i, c, bar)
		}

		fmt.Printf("encoding: %s\n", buf.DetectEncoding())
		fmt.Printf("density:  %s\n", buf.DetectDensity())
	},
}

func init() {
	rootCmd.AddCommand(histogramCmd)
}
