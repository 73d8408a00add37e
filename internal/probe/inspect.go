package probe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Finding is the result of scanning the target's log.
type Finding struct {
	Present bool
	// Line is the first line containing the marker.
	Line string
	// LineNumber is 1-based; zero when the marker is absent.
	LineNumber int
	// LinesScanned counts the lines read.
	LinesScanned int
	// From is the byte offset scanning started at. Line numbers count from
	// there.
	From int64
	// Rewound is set when the log had shrunk below the requested offset and
	// was scanned from the start instead.
	Rewound bool
}

// Inspector looks for the marker in the target's durable output.
//
// The output is append-only, so Offset is taken before a revision starts and
// Inspect reads only what was written after it. An offset of zero reads
// everything.
type Inspector interface {
	Offset() (int64, error)
	Inspect(ctx context.Context, from int64) (Finding, error)
}

// LogInspector scans a log file for a marker, ignoring case. The file is
// only read.
type LogInspector struct {
	Path   string
	Marker string
}

// NewLogInspector creates a LogInspector.
func NewLogInspector(path, marker string) *LogInspector {
	return &LogInspector{Path: path, Marker: marker}
}

// Offset implements Inspector. A log that does not exist yet has offset zero.
func (i *LogInspector) Offset() (int64, error) {
	info, err := os.Stat(i.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("inspect: %w", err)
	}
	return info.Size(), nil
}

// Inspect implements Inspector. A missing or unreadable log is an error; the
// probe records it as absent and unverified. A log shorter than from was
// truncated or rotated and is read from the start.
func (i *LogInspector) Inspect(ctx context.Context, from int64) (Finding, error) {
	if i.Marker == "" {
		return Finding{}, fmt.Errorf("inspect: empty marker")
	}
	f, err := os.Open(i.Path)
	if err != nil {
		return Finding{}, fmt.Errorf("inspect: %w", err)
	}
	defer func() { _ = f.Close() }()

	var finding Finding
	if from > 0 {
		info, err := f.Stat()
		if err != nil {
			return finding, fmt.Errorf("inspect %s: %w", i.Path, err)
		}
		if info.Size() < from {
			from = 0
			finding.Rewound = true
		} else if _, err := f.Seek(from, io.SeekStart); err != nil {
			return finding, fmt.Errorf("inspect %s: %w", i.Path, err)
		}
	}
	finding.From = from

	needle := strings.ToLower(i.Marker)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		finding.LinesScanned++
		if finding.LinesScanned%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return finding, err
			}
		}
		line := scanner.Text()
		if strings.Contains(strings.ToLower(line), needle) {
			finding.Present = true
			finding.Line = strings.TrimSpace(line)
			finding.LineNumber = finding.LinesScanned
			return finding, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return finding, fmt.Errorf("inspect %s: %w", i.Path, err)
	}
	return finding, nil
}
