package sender

import (
	"context"
	"encoding/json"
	"sort"
)

// MailRelay delivers a subject plus a set of named fields to one recipient.
type MailRelay interface {
	Send(ctx context.Context, recipient, subject string, fields map[string]string) error
}

// Envelope is the queued form of a mail, used by the SNS and SQS relays and the queue worker.
type Envelope struct {
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject"`
	Fields    map[string]string `json:"fields"`
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// sortedKeys keeps rendered output stable; "message" always comes first.
func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "message" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := fields["message"]; ok {
		keys = append([]string{"message"}, keys...)
	}
	return keys
}
