package lifecycle

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	unknownText = "Unknown"
	missingText = "N/A"
	noRemarks   = "No remarks provided"
)

// Ticket is the normalized, read-mostly view of a server ticket. Only
// Status changes locally, and only after the backend confirms.
type Ticket struct {
	ID                  string
	TicketNumber        string
	AccountNumber       string
	AccountName         string
	InstallationAddress string
	MobileNumber        string
	Subject             string
	Type                TicketType
	Date                string
	Status              Status
	ServerStatus        string
}

// Photo is an optional image reference. The zero value is "no photo".
type Photo struct {
	ref    string
	remote bool
	set    bool
}

func NoPhoto() Photo { return Photo{} }

// LocalPhoto references a file picked on this device.
func LocalPhoto(path string) Photo { return Photo{ref: path, set: true} }

// RemotePhoto references an image already hosted by the backend.
func RemotePhoto(url string) Photo { return Photo{ref: url, remote: true, set: true} }

func (p Photo) Present() bool { return p.set }

func (p Photo) Remote() bool { return p.set && p.remote }

func (p Photo) Ref() (string, bool) { return p.ref, p.set }

func (p Photo) String() string {
	if !p.set {
		return "none"
	}
	return p.ref
}

type CompletionRecord struct {
	Remarks        string
	Location       string
	PictureCause   Photo
	PictureReading Photo
}

type RejectionRecord struct {
	Reason string
}

type RescheduleRecord struct {
	Date   time.Time
	Reason string
}

// CompletionSubmission is the payload of the complete transition.
type CompletionSubmission struct {
	CompletionRecord
	IdempotencyKey string
}

type Position struct {
	Latitude  float64
	Longitude float64
}

// Snapshot is the result of a ticket load. Completion is set only for
// display-only completed tickets.
type Snapshot struct {
	Ticket     Ticket
	Completion *CompletionRecord
}

func (s Snapshot) DisplayOnly() bool { return s.Ticket.Status.DisplayOnly() }

// RemoteTicket is the backend's ticket record as sent over the wire.
type RemoteTicket struct {
	ID             OptString           `json:"id"`
	TicketNumber   OptString           `json:"ticket_number"`
	SubscriptionID OptString           `json:"subscription_id"`
	Client         *RemoteClient       `json:"client"`
	Subscription   *RemoteSubscription `json:"subscription"`
	Status         string              `json:"status"`
	Type           string              `json:"type"`
	CreatedAt      string              `json:"created_at"`
	Subject        string              `json:"subject"`
	Remarks        string              `json:"remarks"`
	Location       string              `json:"location"`
	Picture        string              `json:"picture"`
	PictureReading string              `json:"picture_reading"`
}

type RemoteClient struct {
	Name         OptString `json:"name"`
	MobileNumber OptString `json:"mobile_number"`
}

type RemoteSubscription struct {
	InstallationAddress OptString `json:"installation_address"`
}

// OptString decodes a JSON string or number, treating null and absent
// values as unset. Backend identifiers arrive as either.
type OptString struct {
	Value string
	Valid bool
}

func Opt(v string) OptString { return OptString{Value: v, Valid: true} }

func (o *OptString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = OptString{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = OptString{Value: s, Valid: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*o = OptString{Value: n.String(), Valid: true}
	return nil
}

func (o OptString) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o OptString) Or(fallback string) string {
	if !o.Valid || o.Value == "" {
		return fallback
	}
	return o.Value
}
