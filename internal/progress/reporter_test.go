package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReporterPicksLineReporterInCI(t *testing.T) {
	t.Setenv("CI", "true")
	_, ok := NewReporter(&bytes.Buffer{}, "Seeding").(*LineReporter)
	assert.True(t, ok)
}

func TestNewReporterPicksTerminalReporter(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	_, ok := NewReporter(&bytes.Buffer{}, "Seeding").(*TerminalReporter)
	assert.True(t, ok)
}

func TestLineReporterOutput(t *testing.T) {
	var buf bytes.Buffer
	r := &LineReporter{w: &buf, task: "Seeding"}

	r.Start(2)
	r.Update(1, "Robot không sạc được")
	r.Update(2, "Robot kêu bíp liên tục")
	r.Finish()

	assert.Equal(t, "Seeding: 2 item(s)\n[1/2] Robot không sạc được\n[2/2] Robot kêu bíp liên tục\nSeeding: done\n", buf.String())
}

func TestTerminalReporterWritesBar(t *testing.T) {
	var buf bytes.Buffer
	r := &TerminalReporter{w: &buf, task: "Seeding"}

	r.Start(3)
	r.Update(1, "one")
	r.Finish()

	assert.NotEmpty(t, buf.String())
}
