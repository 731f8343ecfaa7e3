package cmd

import (
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/fluxdec/fluxdec/flux"
	"github.com/fluxdec/fluxdec/fluxlog"
	"github.com/fluxdec/fluxdec/track"
)

var (
	synthCylinder int
	synthHead     int
	synthSectors  int
	synthSizeCode int
	synthFM       bool
	synthSeed     int64
)

var synthCmd = &cobra.Command{
	Use:   "synth FILE",
	Short: "Synthesize a test track capture",
	Long: "Build a flux capture of a well-formed track with random sector payloads\n" +
		"and write it as CSV. Decoding it back exercises the whole pipeline.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		size := 128 << synthSizeCode
		rng := rand.New(rand.NewSource(synthSeed))
		payloads := make([][]byte, synthSectors)
		for i := range payloads {
			payloads[i] = make([]byte, size)
			rng.Read(payloads[i])
		}

		var cells []byte
		var err error
		bitcell := uint64(2000)
		if synthFM {
			cells, err = track.EncodeTrackFM(uint8(synthCylinder), uint8(synthHead), 1, uint8(synthSizeCode), payloads)
			bitcell = 4000
		} else {
			cells, err = track.EncodeTrackMFM(uint8(synthCylinder), uint8(synthHead), 1, uint8(synthSizeCode), payloads)
		}
		cobra.CheckErr(err)

		buf, err := flux.Synthesize(cells, bitcell)
		cobra.CheckErr(err)
		cobra.CheckErr(fluxlog.Save(args[0], buf))

		logger.Info().
			Str("file", args[0]).
			Int("sectors", synthSectors).
			Int("size", size).
			Int("transitions", buf.Count()).
			Msg("capture written")
	},
}

func init() {
	synthCmd.Flags().IntVarP(&synthCylinder, "cylinder", "c", 0, "cylinder number")
	synthCmd.Flags().IntVarP(&synthHead, "head", "H", 0, "head number")
	synthCmd.Flags().IntVarP(&synthSectors, "sectors", "n", 9, "sectors per track")
	synthCmd.Flags().IntVarP(&synthSizeCode, "size-code", "N", 2, "sector size code (size = 128<<code)")
	synthCmd.Flags().BoolVar(&synthFM, "fm", false, "FM encoding instead of MFM")
	synthCmd.Flags().Int64Var(&synthSeed, "seed", 1, "payload random seed")
	rootCmd.AddCommand(synthCmd)
}
