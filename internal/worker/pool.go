package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/loganalyzer/urlreport/internal/analyzer"
	"github.com/loganalyzer/urlreport/internal/filter"
	"github.com/loganalyzer/urlreport/internal/parser"
	"github.com/loganalyzer/urlreport/internal/source"
)

// Result holds the partial table built from a single source.
type Result struct {
	Path  string
	Table *analyzer.Table
	Lines parser.LineStats
	Err   error
}

// ProgressFunc is called after each source is processed.
// done is the number of sources finished, total is the number of sources and
// lines is the line count of the source that just finished.
type ProgressFunc func(done, total int, source string, lines int)

// Pool builds one partial table per source concurrently.
type Pool struct {
	Workers    int
	Filter     filter.Options
	Mode       analyzer.MedianMode
	OnProgress ProgressFunc
}

// Process reads every file and returns one result per file, in input order.
// Sources not yet started when ctx is cancelled get ctx.Err() as their error.
func (p *Pool) Process(ctx context.Context, files []string) []Result {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	results := make([]Result, len(files))
	fileCh := make(chan int, len(files))
	var processed int64
	total := len(files)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fileCh {
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Path: files[idx], Err: err}
				} else {
					results[idx] = p.processFile(files[idx])
				}
				done := int(atomic.AddInt64(&processed, 1))
				if p.OnProgress != nil {
					p.OnProgress(done, total, files[idx], results[idx].Lines.Total)
				}
			}
		}()
	}

	for i := range files {
		fileCh <- i
	}
	close(fileCh)
	wg.Wait()

	return results
}

func (p *Pool) processFile(path string) Result {
	r, err := source.Open(path)
	if err != nil {
		return Result{Path: path, Err: err}
	}
	defer r.Close()

	return p.processSource(r, path)
}

// processSource ingests src into a fresh table.
func (p *Pool) processSource(src parser.LineSource, path string) Result {
	table := analyzer.NewTable(p.Mode)
	lines, err := parser.Scan(src, func(e parser.LogEntry) bool {
		if !p.Filter.Match(e) {
			return false
		}
		table.Ingest(e.Path, e.ResponseTime)
		return true
	})
	return Result{Path: path, Table: table, Lines: lines, Err: err}
}

// Merge folds results into one table in input order, so the first-seen order of
// paths matches a sequential read of the same files. Any failed source fails the
// whole merge; all failures are reported together.
func Merge(mode analyzer.MedianMode, results []Result) (*analyzer.Table, parser.LineStats, error) {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Path, r.Err))
		}
	}
	if len(errs) > 0 {
		return nil, parser.LineStats{}, errors.Join(errs...)
	}

	table := analyzer.NewTable(mode)
	var lines parser.LineStats
	for _, r := range results {
		if err := table.Merge(r.Table); err != nil {
			return nil, parser.LineStats{}, fmt.Errorf("%s: %w", r.Path, err)
		}
		lines = lines.Add(r.Lines)
	}
	return table, lines, nil
}
