package filter

import (
	"testing"

	"github.com/dhcgn/vmsg2csv/model"
)

func rec(phone, content string) model.Record {
	r := model.NewRecord()
	r.Phone = phone
	r.Content = content
	return r
}

func TestFilter_Allows_IncludeMode(t *testing.T) {
	f, err := New(Options{IncludePhone: []string{"^1380"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows(rec("13800000000", "hello")) {
		t.Error("Expected record to be allowed (phone matches)")
	}
	if f.Allows(rec("10086", "hello")) {
		t.Error("Expected record to be filtered out (phone doesn't match)")
	}
}

func TestFilter_Allows_ExcludeMode(t *testing.T) {
	f, err := New(Options{ExcludeContent: []string{"验证码"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows(rec("10086", "see you at 10")) {
		t.Error("Expected record to be allowed (no verification code)")
	}
	if f.Allows(rec("10086", "您的验证码是 1234")) {
		t.Error("Expected record to be filtered out (contains verification code)")
	}
}

func TestFilter_MutuallyExclusive(t *testing.T) {
	_, err := New(Options{
		IncludePhone: []string{"1380"},
		ExcludePhone: []string{"10086"},
	})
	if err == nil {
		t.Error("Expected error when both include and exclude are specified")
	}
}

func TestFilter_InvalidPattern(t *testing.T) {
	if _, err := New(Options{IncludeContent: []string{"("}}); err == nil {
		t.Error("Expected error for invalid regex")
	}
}

func TestFilter_NoFilters(t *testing.T) {
	f, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !f.Allows(rec("", "")) {
		t.Error("Expected record to be allowed when no filters are active")
	}
}

func TestFilter_Apply(t *testing.T) {
	f, err := New(Options{IncludeContent: []string{"(?i)meet"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	records := []model.Record{
		rec("1", "Meet at 10"),
		rec("2", "bill due"),
		rec("3", "meet again"),
	}
	got := f.Apply(records)
	if len(got) != 2 || got[0].Phone != "1" || got[1].Phone != "3" {
		t.Fatalf("Apply() = %+v, want records 1 and 3 in order", got)
	}

	stats := f.GetStats()
	if stats.Hits["(?i)meet"] != 2 {
		t.Errorf("Hits = %v, want 2 for (?i)meet", stats.Hits)
	}
	if len(stats.IncludeContentPatterns) != 1 {
		t.Errorf("IncludeContentPatterns = %v, want one pattern", stats.IncludeContentPatterns)
	}
}

func TestOptions_Active(t *testing.T) {
	if (Options{}).Active() {
		t.Error("empty options reported active")
	}
	if !(Options{ExcludePhone: []string{"x"}}).Active() {
		t.Error("exclude options reported inactive")
	}
}
