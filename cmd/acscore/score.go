package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var scoreStates []int // shared-state ids to score; empty means all

// scoreCmd prints per-frame cached scores as TSV: frame, state, score.
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Print cached acoustic scores for shared states",
	Run: func(cmd *cobra.Command, args []string) {
		s, obs := loadSession(cmd)

		states := scoreStates
		if len(states) == 0 {
			states = make([]int, s.MS.NumSharedStates())
			for i := range states {
				states[i] = i
			}
		}
		scores, err := s.ScoreStates(obs, states)
		if err != nil {
			logrus.Fatalf("score: %v", err)
		}

		w := bufio.NewWriter(os.Stdout)
		for t := 0; t < obs.Len(); t++ {
			for i, st := range states {
				fmt.Fprintf(w, "%d\t%d\t%.4f\n", t, st, scores[i][t])
			}
		}
		if err := w.Flush(); err != nil {
			logrus.Fatalf("write scores: %v", err)
		}
		st := s.Stats()
		logrus.Infof("cache: %d hits, %d misses (%.1f%% hit rate)", st.Hits, st.Misses, 100*st.HitRate())
	},
}

func init() {
	scoreCmd.Flags().IntSliceVar(&scoreStates, "states", nil, "Comma-separated shared-state ids (default all)")
}
