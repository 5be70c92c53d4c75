package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// RunReport aggregates the outcome of a whole batch run.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Units      []UnitResult
}

// DaysWritten counts units whose output file was produced.
func (r *RunReport) DaysWritten() int {
	n := 0
	for _, u := range r.Units {
		if !u.Failed() {
			n++
		}
	}
	return n
}

// ArchivesOK counts hourly archives that converted cleanly.
func (r *RunReport) ArchivesOK() int {
	n := 0
	for _, u := range r.Units {
		for _, a := range u.Archives {
			if a.Err == nil {
				n++
			}
		}
	}
	return n
}

// ArchivesFailed counts hourly archives that were skipped.
func (r *RunReport) ArchivesFailed() int {
	n := 0
	for _, u := range r.Units {
		for _, a := range u.Archives {
			if a.Err != nil {
				n++
			}
		}
	}
	return n
}

// WriteLog emits one line per processed archive, sorted by path for a
// deterministic file:
//
//	{path} -- OK
//	{path} -- ERROR: {message}
//
// Units that failed to write their output add a line keyed by the unit.
func (r *RunReport) WriteLog(w io.Writer) error {
	var lines []string
	for _, u := range r.Units {
		for _, a := range u.Archives {
			if a.Err != nil {
				lines = append(lines, fmt.Sprintf("%s -- ERROR: %s", a.Path, a.Err))
			} else {
				lines = append(lines, fmt.Sprintf("%s -- OK", a.Path))
			}
		}
		if u.Failed() {
			lines = append(lines, fmt.Sprintf("%s -- ERROR: %s", u.Unit.String(), u.Err))
		}
	}
	sort.Strings(lines)

	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteLogFile writes the run log to path, overwriting any previous run.
func (r *RunReport) WriteLogFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create run log: %w", err)
	}
	defer f.Close()

	if err := r.WriteLog(f); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}
	return f.Close()
}
