package sender

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
)

var fieldTable = template.Must(template.New("mail").Parse(`<!DOCTYPE html>
<html><body>
<h2>{{.Subject}}</h2>
{{with .Message}}<pre style="font-family:inherit">{{.}}</pre>{{end}}
<table cellpadding="6" style="border-collapse:collapse">
{{range .Rows}}<tr><th align="left" style="border:1px solid #ddd">{{.Name}}</th><td style="border:1px solid #ddd;white-space:pre-wrap">{{.Value}}</td></tr>
{{end}}</table>
</body></html>`))

type fieldRow struct {
	Name  string
	Value string
}

// renderFields renders the "table" mail layout: the free-text message followed by the
// remaining fields.
func renderFields(subject string, fields map[string]string) (string, error) {
	data := struct {
		Subject string
		Message string
		Rows    []fieldRow
	}{Subject: subject, Message: fields["message"]}
	for _, k := range sortedKeys(fields) {
		if k == "message" {
			continue
		}
		data.Rows = append(data.Rows, fieldRow{Name: k, Value: fields[k]})
	}

	var buf bytes.Buffer
	if err := fieldTable.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPRelay struct {
	host     string
	port     string
	username string
	password string
	send     sendMailFunc
}

func NewSMTPRelay(host, port, username, password string) (*SMTPRelay, error) {
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if port == "" {
		return nil, fmt.Errorf("SMTP_PORT not set")
	}
	if username == "" {
		return nil, fmt.Errorf("SMTP_USER not set")
	}
	if password == "" {
		return nil, fmt.Errorf("SMTP_PASS not set")
	}
	return &SMTPRelay{host: host, port: port, username: username, password: password, send: smtp.SendMail}, nil
}

func (s *SMTPRelay) Send(ctx context.Context, recipient, subject string, fields map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := renderFields(subject, fields)
	if err != nil {
		return fmt.Errorf("render mail: %w", err)
	}

	msg := []byte(
		"From: " + s.username + "\r\n" +
			"To: " + recipient + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := s.send(addr, auth, s.username, []string{recipient}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
