package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Entry is one parsed line of hunt.log.
type Entry struct {
	Time     time.Time      `json:"time"`
	Level    string         `json:"level"`
	Message  string         `json:"msg"`
	HuntID   string         `json:"hunt_id,omitempty"`
	Revision string         `json:"revision,omitempty"`
	Phase    string         `json:"phase,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
	Raw      string         `json:"-"` // set when the line was not JSON
}

// Filter selects entries. Zero-valued fields match everything.
type Filter struct {
	// Level keeps entries at or above this level (DEBUG < INFO < WARN < ERROR).
	Level string
	// Since keeps entries at or after this time.
	Since time.Time
	// HuntID keeps entries of one hunt.
	HuntID string
	// Pattern is matched against the message and attribute values.
	Pattern *regexp.Regexp
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var contextKeys = map[string]bool{
	"time":      true,
	"level":     true,
	"msg":       true,
	KeyHunt:     true,
	KeyRevision: true,
	KeyPhase:    true,
}

// ReadEntries parses every line of the log at path in file order.
// Lines that are not JSON are kept with Raw set.
func ReadEntries(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file at %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ParseEntries(file)
}

// ParseEntries reads JSON log lines from r.
func ParseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseEntry(line)
		if err != nil {
			entries = append(entries, Entry{Raw: line})
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := Entry{Attrs: make(map[string]any)}
	if s, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			entry.Time = t
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.HuntID, _ = raw[KeyHunt].(string)
	entry.Revision, _ = raw[KeyRevision].(string)
	entry.Phase, _ = raw[KeyPhase].(string)

	for k, v := range raw {
		if !contextKeys[k] {
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// Apply returns the entries matching f, followed by at most tail of them
// when tail > 0.
func (f Filter) Apply(entries []Entry, tail int) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	if tail > 0 && len(out) > tail {
		out = out[len(out)-tail:]
	}
	return out
}

func (f Filter) matches(e Entry) bool {
	if e.Raw != "" {
		return f.Pattern == nil || f.Pattern.MatchString(e.Raw)
	}

	if f.Level != "" {
		want, ok := levelOrder[ParseLevel(f.Level)]
		have, known := levelOrder[strings.ToUpper(e.Level)]
		if ok && known && have < want {
			return false
		}
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if f.HuntID != "" && e.HuntID != f.HuntID {
		return false
	}
	if f.Pattern != nil {
		text := e.Message
		for _, k := range e.AttrKeys() {
			text += fmt.Sprintf(" %v", e.Attrs[k])
		}
		if !f.Pattern.MatchString(text) {
			return false
		}
	}
	return true
}

// AttrKeys returns the attribute keys in sorted order.
func (e Entry) AttrKeys() []string {
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
