package web

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogBuffer keeps the most recent log lines for /api/logs. It is an
// io.Writer meant to sit next to stderr in log.SetOutput.
type LogBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []LogLine
	next    uint64
	partial string
}

// LogLine is one complete log line. Seq increases by one per line and never
// repeats, so clients can poll with ?after=<last seq>.
type LogLine struct {
	Seq  uint64 `json:"seq"`
	Text string `json:"text"`
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 2000
	}
	return &LogBuffer{max: maxLines, next: 1}
}

// Write keeps complete lines; a trailing fragment waits for the next write.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := b.partial + string(p)
	for {
		i := strings.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		b.appendLocked(data[:i])
		data = data[i+1:]
	}
	b.partial = data
	return len(p), nil
}

func (b *LogBuffer) appendLocked(text string) {
	text = strings.TrimRight(text, "\r")
	if text == "" {
		return
	}
	b.lines = append(b.lines, LogLine{Seq: b.next, Text: text})
	b.next++
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = append(b.lines[:0], b.lines[over:]...)
	}
}

// Since returns at most limit lines with Seq > after, oldest first, and the
// number of lines after `after` that were already evicted.
func (b *LogBuffer) Since(after uint64, limit int) (lines []LogLine, missed uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) > 0 && b.lines[0].Seq > after+1 {
		missed = b.lines[0].Seq - after - 1
	}
	for _, l := range b.lines {
		if l.Seq > after {
			lines = append(lines, l)
		}
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, missed
}

type LogsResponse struct {
	NowUTC string    `json:"now_utc"`
	Missed uint64    `json:"missed"`
	Lines  []LogLine `json:"lines"`
}

func (b *LogBuffer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		q := r.URL.Query()

		var after uint64
		if s := q.Get("after"); s != "" {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				http.Error(w, "after must be a line sequence number", http.StatusBadRequest)
				return
			}
			after = v
		}
		limit := 200
		if s := q.Get("tail"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 5000 {
				http.Error(w, "tail must be an integer in [1,5000]", http.StatusBadRequest)
				return
			}
			limit = v
		}

		lines, missed := b.Since(after, limit)
		if q.Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			for _, l := range lines {
				_, _ = w.Write([]byte(l.Text + "\n"))
			}
			return
		}
		writeJSON(w, http.StatusOK, LogsResponse{
			NowUTC: time.Now().UTC().Format(time.RFC3339Nano),
			Missed: missed,
			Lines:  lines,
		})
	})
}
