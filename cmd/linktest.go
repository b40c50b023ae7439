// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/aldestat/pkg/aldes"
)

var (
	linkTestDuration int
	linkTestVerbose  bool
)

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Measure read bursts and idle gaps on the connection",
	Long: `Listen on the connection without decoding and report how the controller's
bytes arrive: burst sizes and the idle gaps between them.

Use the result to choose bridge.framing and bridge.frame_gap. A frame_gap
well below the shortest gap between bursts and above the longest pause
inside a burst keeps frames intact.

Exit codes:
  0 - Test completed normally
  1 - Connection failed during the test
  2 - Connection error`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().IntVar(&linkTestDuration, "duration", 30, "Test duration in seconds")
	linkTestCmd.Flags().BoolVar(&linkTestVerbose, "verbose", false, "Print every read")
}

// linkStats accumulates reads, splitting them into bursts at gaps of at
// least burstGap
type linkStats struct {
	burstGap time.Duration

	reads     int
	bytes     int
	bursts    []int
	minGap    time.Duration
	maxInside time.Duration
	last      time.Time
}

func newLinkStats(burstGap time.Duration) *linkStats {
	return &linkStats{burstGap: burstGap}
}

func (s *linkStats) add(at time.Time, n int) {
	s.reads++
	s.bytes += n

	if s.last.IsZero() {
		s.bursts = append(s.bursts, n)
		s.last = at
		return
	}

	gap := at.Sub(s.last)
	s.last = at
	if gap >= s.burstGap {
		if s.minGap == 0 || gap < s.minGap {
			s.minGap = gap
		}
		s.bursts = append(s.bursts, n)
		return
	}
	if gap > s.maxInside {
		s.maxInside = gap
	}
	s.bursts[len(s.bursts)-1] += n
}

// frameSized counts bursts holding exactly one frame of frameLength bytes
func (s *linkStats) frameSized(frameLength int) int {
	n := 0
	for _, b := range s.bursts {
		if b == frameLength {
			n++
		}
	}
	return n
}

func (s *linkStats) report(out io.Writer, frameLength int) {
	fmt.Fprintf(out, "Reads: %d\n", s.reads)
	fmt.Fprintf(out, "Bytes received: %d\n", s.bytes)
	fmt.Fprintf(out, "Bursts: %d (%d of exactly %d bytes)\n", len(s.bursts), s.frameSized(frameLength), frameLength)
	if s.minGap > 0 {
		fmt.Fprintf(out, "Shortest gap between bursts: %v\n", s.minGap)
	}
	fmt.Fprintf(out, "Longest pause inside a burst: %v\n", s.maxInside)
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, connInfo, err := OpenConnection(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Aldestat - Link Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", linkTestDuration)

	type read struct {
		at   time.Time
		data []byte
	}
	readChan := make(chan read, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- read{at: time.Now(), data: data}
			}
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	stats := newLinkStats(cfg.Bridge.FrameGap)
	deadline := time.After(time.Duration(linkTestDuration) * time.Second)

	fmt.Printf("Listening for data...\n\n")

	for {
		select {
		case r := <-readChan:
			stats.add(r.at, len(r.data))
			if linkTestVerbose {
				fmt.Printf("[%s] %d bytes: %s\n", r.at.Format("15:04:05.000"), len(r.data), aldes.FormatHex(r.data))
			}

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n", time.Now().Format("15:04:05.000"), err)
			fmt.Printf("\n--- Test Results ---\n")
			stats.report(os.Stdout, cfg.Bridge.FrameLength)
			fmt.Printf("Result: FAILED (connection error)\n")
			os.Exit(1)

		case <-deadline:
			fmt.Printf("\n--- Test Results ---\n")
			stats.report(os.Stdout, cfg.Bridge.FrameLength)
			fmt.Printf("Result: PASSED (connection stable)\n")
			return nil
		}
	}
}
