package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var alignHMMs []string // hmm sequence to align against

// alignCmd force-aligns a feature file against an hmm sequence.
var alignCmd = &cobra.Command{
	Use:   "align [hmm...]",
	Short: "Force-align features against a sequence of hmms",
	Run: func(cmd *cobra.Command, args []string) {
		names := alignHMMs
		if len(names) == 0 {
			names = args
		}
		if len(names) == 0 {
			logrus.Fatalf("no hmm sequence given")
		}
		s, obs := loadSession(cmd)

		al, err := s.Align(names, obs)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		for _, seg := range al.Segments {
			fmt.Printf("%d\t%d\t%s\n", seg.StartFrame, seg.EndFrame, seg.Name)
		}
		fmt.Printf("# log score %.4f\n", al.LogScore)
		st := s.Stats()
		logrus.Infof("cache: %d hits, %d misses (%.1f%% hit rate)", st.Hits, st.Misses, 100*st.HitRate())
	},
}

func init() {
	alignCmd.Flags().StringSliceVar(&alignHMMs, "hmms", nil, "Comma-separated hmm sequence (or positional args)")
}
