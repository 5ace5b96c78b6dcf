package acoustic

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Observation is one frame of features, split into streams.
type Observation struct {
	Streams [][]float64
}

// Sequence is the observation sequence of one utterance.
type Sequence []Observation

// SingleStream wraps single-stream feature frames as a Sequence.
func SingleStream(features [][]float64) Sequence {
	seq := make(Sequence, len(features))
	for t, f := range features {
		seq[t] = Observation{Streams: [][]float64{f}}
	}
	return seq
}

// Len returns the number of frames.
func (s Sequence) Len() int { return len(s) }

// Window returns up to n observations starting at frame. Fewer are returned
// near the end of the utterance and none past it.
func (s Sequence) Window(frame, n int) []Observation {
	if frame < 0 || frame >= len(s) || n <= 0 {
		return nil
	}
	end := frame + n
	if end > len(s) {
		end = len(s)
	}
	return s[frame:end]
}

// ReadObservations parses whitespace-separated feature frames, one per line,
// splitting each line into streams of the given widths. Blank lines and lines
// starting with '#' are skipped.
func ReadObservations(r io.Reader, widths []int) (Sequence, error) {
	total := 0
	for _, w := range widths {
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("no stream widths")
	}

	var seq Sequence
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != total {
			return nil, fmt.Errorf("line %d: %w: %d values, want %d", lineNo, ErrDimensionMismatch, len(fields), total)
		}
		flat := make([]float64, total)
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			flat[i] = v
		}
		obs := Observation{Streams: make([][]float64, len(widths))}
		off := 0
		for s, w := range widths {
			obs.Streams[s] = flat[off : off+w]
			off += w
		}
		seq = append(seq, obs)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return seq, nil
}
