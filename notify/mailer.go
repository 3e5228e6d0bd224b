package notify

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// AddressBook resolves a user id to an email address and display name.
type AddressBook func(ctx context.Context, userID string) (email, name string, err error)

// Mailer emails the recipient of each event through SendGrid.
type Mailer struct {
	client *sendgrid.Client
	from   *mail.Email
	lookup AddressBook
	appURL string
}

// NewMailer builds a Mailer. fromAddress is the envelope sender.
func NewMailer(apiKey, fromAddress, appName, appURL string, lookup AddressBook) *Mailer {
	return &Mailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(appName, fromAddress),
		lookup: lookup,
		appURL: strings.TrimRight(appURL, "/"),
	}
}

var mailBody = template.Must(template.New("meeting").Parse(`<p>{{.Headline}}</p>
<p>{{.Start}} to {{.End}} (UTC)</p>
{{if .Link}}<p><a href="{{.Link}}">Open meeting</a></p>{{end}}`))

type mailView struct {
	Headline string
	Start    string
	End      string
	Link     string
}

func (m *Mailer) Notify(ctx context.Context, ev Event) error {
	address, name, err := m.lookup(ctx, ev.RecipientID)
	if err != nil {
		return fmt.Errorf("notify: resolve recipient %s: %w", ev.RecipientID, err)
	}
	if address == "" {
		return nil
	}

	subject, headline := describe(ev)
	view := mailView{
		Headline: headline,
		Start:    ev.ScheduledStart.UTC().Format(time.RFC1123),
		End:      ev.ScheduledEnd.UTC().Format(time.RFC1123),
	}
	if m.appURL != "" {
		view.Link = m.appURL + "/meetings/" + ev.MeetingID
	}
	var html strings.Builder
	if err := mailBody.Execute(&html, view); err != nil {
		return fmt.Errorf("notify: render mail: %w", err)
	}

	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail(name, address), headline, html.String())
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("notify: sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: sendgrid status %d", resp.StatusCode)
	}
	return nil
}

// describe returns the subject line and headline for ev.
func describe(ev Event) (string, string) {
	switch ev.Topic {
	case TopicMeetingCreated:
		return "New meeting invitation", "You have been invited to a meeting."
	case TopicMeetingAccepted:
		return "Meeting accepted", "Your meeting invitation was accepted."
	case TopicMeetingDeclined:
		return "Meeting declined", "Your meeting invitation was declined."
	case TopicMeetingCancelled:
		return "Meeting cancelled", "A meeting you were part of was cancelled."
	case TopicMeetingRescheduled:
		return "Meeting rescheduled", "A meeting you are part of has a new time."
	default:
		return "Meeting update", "A meeting you are part of was updated."
	}
}
