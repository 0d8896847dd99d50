package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/archivist-go/internal/domain"
)

func TestFormatProgress(t *testing.T) {
	e := domain.ProgressEvent{
		Sequence:     3,
		Total:        10,
		UsagePercent: 12,
		Outcome:      domain.OutcomeDownloaded,
		Message:      "[OK] Downloaded V1 => /data/a.pdf",
	}
	assert.Equal(t, "[✓  3/10  30.00%] [☁️ 12.00%] [OK] Downloaded V1 => /data/a.pdf", formatProgress(e, true))

	e.Outcome = domain.OutcomeMissing
	e.Message = "[ KO ] V1 => File does not exist: /data/a.pdf"
	assert.Equal(t, "[✗  3/10  30.00%] [ KO ] V1 => File does not exist: /data/a.pdf", formatProgress(e, false))
}

func TestFormatProgress_EmptyPlan(t *testing.T) {
	assert.Equal(t, "[✓ 0/0   0.00%] done", formatProgress(domain.ProgressEvent{Message: "done"}, false))
}

func TestProgressPrinter_NoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf, false)
	p.OnProgress(domain.ProgressEvent{Sequence: 1, Total: 1, Outcome: domain.OutcomeFailed, Message: "boom"})
	assert.Equal(t, "[✗ 1/1 100.00%] boom\n", buf.String())
}

func TestStderrIfStdout(t *testing.T) {
	assert.Equal(t, "stderr", stderrIfStdout("stdout"))
	assert.Equal(t, "stderr", stderrIfStdout(""))
	assert.Equal(t, "/var/log/archivist.log", stderrIfStdout("/var/log/archivist.log"))
}

func TestIsTerminal_RedirectedOutput(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	assert.False(t, isTerminal(w))

	f, err := os.CreateTemp(t.TempDir(), "progress")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))

	var buf bytes.Buffer
	assert.False(t, isTerminal(&buf))
}
