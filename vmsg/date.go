package vmsg

import (
	"fmt"
	"strings"
)

// dateWidth is the length of the "2006/01/02 15:04:05" prefix of a Date value.
const dateWidth = 19

// normalizeDate turns "2014/06/29 09:38:53 GMT" into "2014-06-29T09:38:53.mmmZ".
// The source has no sub-second field, millis only fills the shape.
func normalizeDate(value string, millis int) string {
	value = strings.TrimSpace(value)
	if len(value) > dateWidth {
		value = value[:dateWidth]
	}
	value = strings.ReplaceAll(value, " ", "T")
	value = strings.ReplaceAll(value, "/", "-")
	return fmt.Sprintf("%s.%03dZ", value, millis)
}
