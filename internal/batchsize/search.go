package batchsize

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Candidate batch sizes tried by the search. Larger batches are assumed to
// pay off on CPU-only machines.
var (
	GPUCandidates = []int{1, 2, 4, 8, 16, 32, 64}
	CPUCandidates = []int{4, 8, 16, 32, 64, 128, 256, 512}
)

// Candidates returns a copy of the candidate list for the given hardware.
func Candidates(nogpu bool) []int {
	if nogpu {
		return slices.Clone(CPUCandidates)
	}

	return slices.Clone(GPUCandidates)
}

// ProgressMarker selects the benchmark output lines echoed as progress.
const ProgressMarker = "sparse_categorical_accuracy"

// SearchRequest describes one batch size search.
type SearchRequest struct {
	Model   string
	NoGPU   bool
	DataDir string
	// MaxTries bounds the attempts per candidate to MaxTries-1.
	// Zero means DefaultMaxTries.
	MaxTries int
}

// CandidateResult is the outcome for one batch size.
type CandidateResult struct {
	BatchSize int
	OK        bool
	Tries     int
	Elapsed   time.Duration
}

// SearchResult holds the selected batch size and every candidate's outcome.
type SearchResult struct {
	Optimal    int
	Candidates []CandidateResult
}

// Searcher times the benchmark for each candidate batch size.
type Searcher struct {
	Runner Runner
	Out    io.Writer
	Log    *zap.Logger
	// Pause follows every attempt, failed or not.
	Pause time.Duration

	// Sleep and Now default to a context-aware time.Sleep and time.Now.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Find runs the benchmark for every candidate and returns the one with the
// lowest elapsed time. Failed candidates are reported and skipped. When no
// candidate succeeds, or on ties, the smaller candidate wins. Past request
// validation the only error is a cancelled context, returned along with the
// best result so far.
func (s *Searcher) Find(ctx context.Context, req SearchRequest) (SearchResult, error) {
	candidates := Candidates(req.NoGPU)
	result := SearchResult{Optimal: slices.Min(candidates)}

	if req.Model == "" {
		return result, ErrModelRequired
	}

	if req.DataDir == "" {
		return result, ErrDataDirRequired
	}

	maxTries := req.MaxTries
	if maxTries == 0 {
		maxTries = DefaultMaxTries
	}

	maxBatch := strconv.Itoa(slices.Max(candidates))
	found := false

	var fastest time.Duration

	for _, size := range candidates {
		args := []string{
			"--model", req.Model,
			"--batch-size", strconv.Itoa(size),
			"--datadir", req.DataDir,
			"--max_batch_size", maxBatch,
		}

		cand, err := s.tryCandidate(ctx, size, args, maxTries)
		result.Candidates = append(result.Candidates, cand)

		switch {
		case cand.OK:
			s.printf("\n\n%-4d %4.3f (%d tries)\n\n", size, cand.Elapsed.Seconds(), cand.Tries)

			if !found || cand.Elapsed < fastest {
				found = true
				fastest = cand.Elapsed
				result.Optimal = size
			}
		case err == nil:
			s.printf("\n\n%-4d failed with %d tries\n\n", size, cand.Tries)
		}

		if err != nil {
			return result, err
		}
	}

	s.logger().Debug("search finished",
		zap.String("model", req.Model),
		zap.Int("optimal", result.Optimal),
		zap.Duration("elapsed", fastest))

	return result, nil
}

func (s *Searcher) tryCandidate(ctx context.Context, size int, args []string, maxTries int) (CandidateResult, error) {
	cand := CandidateResult{BatchSize: size}

	for !cand.OK && cand.Tries < maxTries-1 {
		cand.Tries++

		start := s.now()

		runErr := s.Runner.Run(ctx, args, func(line string) {
			if strings.Contains(line, ProgressMarker) {
				s.printf("%s\r", line)
			}
		})
		if runErr == nil {
			cand.OK = true
			cand.Elapsed = s.now().Sub(start)
		} else {
			s.logger().Debug("benchmark attempt failed",
				zap.Int("batch_size", size),
				zap.Int("try", cand.Tries),
				zap.Error(runErr))
		}

		if runErr != nil && ctx.Err() != nil {
			return cand, ctx.Err()
		}

		sleepErr := s.sleep(ctx, s.Pause)
		if sleepErr != nil {
			return cand, sleepErr
		}
	}

	return cand, nil
}

func (s *Searcher) printf(format string, a ...any) {
	if s.Out == nil {
		return
	}

	_, _ = fmt.Fprintf(s.Out, format, a...)
}

func (s *Searcher) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}

	return s.Log
}

func (s *Searcher) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

func (s *Searcher) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}

	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
