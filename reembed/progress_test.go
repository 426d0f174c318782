package reembed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Interval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1000, 100)
	tracker.Start()

	tracker.Increment(50)
	assert.Empty(t, buf.String(), "below the interval")

	tracker.Increment(60)
	assert.Contains(t, buf.String(), "110/1,000 entries")
	assert.Contains(t, buf.String(), "(11.0%)")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2500, 1000)
	tracker.Start()
	tracker.Increment(10)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "2,500/2,500 entries (100.0%)")
	assert.True(t, strings.HasSuffix(output, "\n"))
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)
	tracker.Start()
	tracker.Increment(25)
	assert.Contains(t, buf.String(), "10/10 entries")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 0)
	tracker.Increment(5)
	tracker.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}
