package model

import "time"

// Direction tells whether the device owner received or sent a short message.
type Direction string

const (
	DirectionReceived Direction = "RECEIVED"
	DirectionSent     Direction = "SENT"
)

const (
	// StatusDone and Terminator are written verbatim into every exported row.
	StatusDone = "y"
	Terminator = "-1"

	// TimestampLayout is the shape Record.Timestamp is normalised to.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Record is one message block of a vmsg backup.
type Record struct {
	Phone      string
	Direction  Direction
	Timestamp  string
	Content    string
	Status     string
	Terminator string
}

// NewRecord returns a record with the constant columns filled in.
func NewRecord() Record {
	return Record{Status: StatusDone, Terminator: Terminator}
}

// Time parses the normalised timestamp. The millisecond part carries no
// information and is dropped.
func (r Record) Time() (time.Time, error) {
	t, err := time.Parse(TimestampLayout, r.Timestamp)
	if err != nil {
		return time.Time{}, err
	}
	return t.Truncate(time.Second), nil
}

// Message represents a record rendered as an RFC 5322 email.
type Message struct {
	ID         string
	Hash       string
	ReceivedAt time.Time
	Size       int64
	Raw        []byte
}

// Envelope wraps a message alongside an optional error encountered while composing.
type Envelope struct {
	Message Message
	Err     error
}
