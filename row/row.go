package row

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dhcgn/vmsg2csv/model"
)

// Project returns the fixed seven columns of a record:
// id, phone, direction, timestamp, content, status, terminator.
func Project(id int, rec model.Record) []string {
	return []string{
		strconv.Itoa(id),
		rec.Phone,
		string(rec.Direction),
		rec.Timestamp,
		rec.Content,
		rec.Status,
		rec.Terminator,
	}
}

// Write encodes records as CSV rows, numbering them from 1 in slice order.
// Fields are only quoted when they contain a comma, quote or line break.
func Write(w io.Writer, records []model.Record) error {
	writer := csv.NewWriter(w)
	for i, rec := range records {
		if err := writer.Write(Project(i+1, rec)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
