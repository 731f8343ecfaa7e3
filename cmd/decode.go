package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxdec/fluxdec/flux"
	"github.com/fluxdec/fluxdec/fluxlog"
	"github.com/fluxdec/fluxdec/pll"
	"github.com/fluxdec/fluxdec/track"
)

var (
	decodeMerge   bool
	decodeVerbose bool
	decodeHistory string
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE",
	Short: "Decode a flux capture into sectors",
	Long: "Decode a flux capture CSV into sectors. With --merge, every captured\n" +
		"revolution is decoded separately and the best copy of each sector wins.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := conf.Resolve(profileName)
		cobra.CheckErr(err)

		buf, err := fluxlog.Load(args[0])
		cobra.CheckErr(err)

		logger.Info().
			Str("file", args[0]).
			Int("transitions", buf.Count()).
			Int("revolutions", buf.Revolutions()).
			Msg("capture loaded")

		var tr *track.Track
		if decodeMerge && buf.Revolutions() > 1 {
			tracks, err := track.DecodeRevolutions(buf, cfg)
			cobra.CheckErr(err)
			tr, err = track.Merge(tracks)
			cobra.CheckErr(err)
			logger.Info().
				Int("revolutions", len(tracks)).
				Msg("merged revolutions")
		} else {
			tr, err = track.Decode(buf, cfg)
			cobra.CheckErr(err)
		}

		if decodeVerbose {
			fmt.Println(tr.Summary())
		} else {
			fmt.Println(tr.Status())
		}
		logger.Debug().
			Float64("lock_pct", tr.PLLStats.LockPercentage).
			Float64("bit_error_rate", tr.PLLStats.BitErrorRate).
			Uint64("timing_errors", tr.PLLStats.TimingErrors).
			Msg("clock recovery quality")
		if !tr.Consistent {
			logger.Warn().
				Int("bad", tr.BadSectors).
				Msg("track has unrecovered sectors")
		}

		if decodeHistory != "" {
			cobra.CheckErr(dumpHistory(decodeHistory, buf, cfg))
		}
	},
}

// dumpHistory reruns clock recovery with per-transition recording enabled
// and writes it as CSV for offline plotting.
func dumpHistory(path string, buf *flux.Buffer, cfg track.Config) error {
	pc := cfg.PLL
	pc.RecordHistory = true
	if pc.MaxHistory == 0 {
		pc.MaxHistory = buf.Count()
	}
	p, err := pll.New(pc)
	if err != nil {
		return err
	}

	times := buf.Times()
	for i := 1; i < len(times); i++ {
		p.Process(float64(times[i] - times[i-1]))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.History().WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	decodeCmd.Flags().BoolVarP(&decodeMerge, "merge", "m", false, "decode all revolutions and merge")
	decodeCmd.Flags().BoolVarP(&decodeVerbose, "sectors", "s", false, "print per-sector detail")
	decodeCmd.Flags().StringVar(&decodeHistory, "history", "", "write the PLL transition history to a CSV file")
	rootCmd.AddCommand(decodeCmd)
}
