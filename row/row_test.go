package row

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/dhcgn/vmsg2csv/model"
)

func record(phone string, dir model.Direction, content string) model.Record {
	rec := model.NewRecord()
	rec.Phone = phone
	rec.Direction = dir
	rec.Timestamp = "2014-06-29T09:38:53.123Z"
	rec.Content = content
	return rec
}

func TestProject(t *testing.T) {
	got := Project(1, record("13800000000", model.DirectionReceived, "012345"))
	want := []string{"1", "13800000000", "RECEIVED", "2014-06-29T09:38:53.123Z", "012345", "y", "-1"}

	if len(got) != len(want) {
		t.Fatalf("Project() returned %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWrite(t *testing.T) {
	records := []model.Record{
		record("13800000000", model.DirectionReceived, "012345"),
		record("10086", model.DirectionSent, "你好,世界"),
		record("10010", model.DirectionReceived, `say "hi"`),
		record("10010", model.DirectionReceived, "two\nlines"),
	}

	var buf bytes.Buffer
	if err := Write(&buf, records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := strings.Join([]string{
		"1,13800000000,RECEIVED,2014-06-29T09:38:53.123Z,012345,y,-1",
		`2,10086,SENT,2014-06-29T09:38:53.123Z,"你好,世界",y,-1`,
		`3,10010,RECEIVED,2014-06-29T09:38:53.123Z,"say ""hi""",y,-1`,
		"4,10010,RECEIVED,2014-06-29T09:38:53.123Z,\"two\nlines\",y,-1",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("Write() output =\n%s\nwant\n%s", buf.String(), want)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	for i, r := range rows {
		if r[4] != records[i].Content {
			t.Errorf("row %d content = %q, want %q", i+1, r[4], records[i].Content)
		}
	}
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Write() wrote %q for no records", buf.String())
	}
}
