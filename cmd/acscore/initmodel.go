package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/ieee0824/acscore/acoustic"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	outPath      string   // output model path
	streamWidths []int    // feature width of each stream
	numMix       int      // components per stream
	hmmNames     []string // one left-to-right hmm per name
	statesPerHMM int      // emitting states per hmm
	seed         int64    // random seed
)

// initModelCmd writes a random model set, for smoke-testing the scorer.
var initModelCmd = &cobra.Command{
	Use:   "init-model",
	Short: "Write a random acoustic model set",
	Run: func(cmd *cobra.Command, args []string) {
		if len(hmmNames) == 0 {
			logrus.Fatalf("no hmm names given")
		}
		if statesPerHMM < 1 || numMix < 1 {
			logrus.Fatalf("--hmm-states and --mix must be >= 1")
		}
		rng := rand.New(rand.NewSource(seed))
		ms := acoustic.NewRandomModelSet(rng, len(hmmNames)*statesPerHMM, streamWidths, numMix)
		for i, name := range hmmNames {
			ids := make([]int, statesPerHMM)
			for s := range ids {
				ids[s] = i*statesPerHMM + s
			}
			ms.AddHMM(acoustic.NewHMMDef(name, ids))
		}
		if err := ms.Precompute(); err != nil {
			logrus.Fatalf("model set: %v", err)
		}

		f, err := os.Create(outPath)
		if err != nil {
			logrus.Fatalf("create %s: %v", outPath, err)
		}
		if err := ms.Save(f); err != nil {
			f.Close()
			logrus.Fatalf("save model: %v", err)
		}
		if err := f.Close(); err != nil {
			logrus.Fatalf("close %s: %v", outPath, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s: %d hmms, %d states, streams %v, %d mix\n",
			outPath, len(hmmNames), ms.NumSharedStates(), streamWidths, numMix)
	},
}

func init() {
	initModelCmd.Flags().StringVar(&outPath, "out", "model.gob", "Output model set path")
	initModelCmd.Flags().IntSliceVar(&streamWidths, "widths", []int{39}, "Comma-separated stream widths")
	initModelCmd.Flags().IntVar(&numMix, "mix", 4, "Mixture components per stream")
	initModelCmd.Flags().StringSliceVar(&hmmNames, "hmms", []string{"sil", "a", "i", "u", "e", "o"}, "Comma-separated hmm names")
	initModelCmd.Flags().IntVar(&statesPerHMM, "hmm-states", 3, "Emitting states per hmm")
	initModelCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
}
