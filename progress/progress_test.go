package progress

import (
	"errors"
	"testing"

	"github.com/dhcgn/vmsg2csv/stats"
)

func TestNew_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		logLevel string
		want     bool
	}{
		{name: "debug keeps log lines", total: 10, logLevel: "debug", want: false},
		{name: "error level", total: 10, logLevel: "error", want: false},
		{name: "nothing to upload", total: 0, logLevel: "info", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := New(tt.total, 0, tt.logLevel)
			if got := bar.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
			// disabled bars ignore events
			bar.Update(stats.Event{Type: stats.EventTypeError, Err: errors.New("boom")})
			bar.Stop()
		})
	}
}

func TestBar_NilIsDisabled(t *testing.T) {
	var bar *Bar
	if bar.Enabled() {
		t.Error("nil bar reports enabled")
	}
}
