package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"time"
)

// LogEntry represents a parsed MultiLogger line
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Category  string                 `json:"category"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogFilter selects entries whose string field Key equals Value. A zero filter matches everything.
type LogFilter struct {
	Key   string
	Value string
}

func (f LogFilter) match(e LogEntry) bool {
	if f.Key == "" {
		return true
	}
	v, ok := e.Fields[f.Key].(string)
	return ok && v == f.Value
}

// LogReader reads the daily category files written by MultiLogger
type LogReader struct {
	logsDir string
}

// NewLogReader creates a new log reader
func NewLogReader(logsDir string) *LogReader {
	return &LogReader{logsDir: logsDir}
}

// ReadLogs returns the last limit entries of a category file matching filter.
// A missing file yields no entries.
func (lr *LogReader) ReadLogs(category LogCategory, date time.Time, filter LogFilter, limit int) ([]LogEntry, error) {
	file, err := os.Open(CategoryLogPath(lr.logsDir, category, date))
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries := []LogEntry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		entry := parseEntry(category, line)
		if !filter.match(entry) {
			continue
		}
		entries = append(entries, entry)
		if limit > 0 && len(entries) > limit {
			entries = entries[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseEntry(category LogCategory, line []byte) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEntry{Level: "info", Message: string(line), Category: string(category)}
	}

	entry := LogEntry{Category: string(category), Fields: map[string]interface{}{}}
	for k, v := range raw {
		switch k {
		case "ts":
			entry.Timestamp, _ = v.(string)
		case "level":
			entry.Level, _ = v.(string)
		case "msg":
			entry.Message, _ = v.(string)
		default:
			entry.Fields[k] = v
		}
	}
	return entry
}
