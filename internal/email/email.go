// Package email renders and delivers transactional email. Delivery is best effort: the Dispatcher
// sends in the background and only logs failures.
package email

import (
	"bytes"
	"context"
	"html/template"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// InvitationSubject is the subject line of invitation emails.
const InvitationSubject = "You've been invited to TeamOS"

// InvitationData fills the invitation template.
type InvitationData struct {
	OrgName   string
	Role      string
	AcceptURL string
	ExpiresIn string
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<p>You've been invited to join {{if .OrgName}}<strong>{{.OrgName}}</strong>{{else}}an organization{{end}} on TeamOS{{if .Role}} as {{.Role}}{{end}}.</p>
	<p><a href="{{.AcceptURL}}">Accept Invitation</a></p>
	<p>This link expires in {{.ExpiresIn}}.</p>
</body>
</html>
`))

// Invitation renders the invitation email for to.
func Invitation(to string, data InvitationData) (Message, error) {
	if data.ExpiresIn == "" {
		data.ExpiresIn = "48 hours"
	}
	var buf bytes.Buffer
	if err := invitationTemplate.Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: InvitationSubject, HTML: buf.String()}, nil
}
