package email

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

var welcomeTemplate = template.Must(template.New("welcome").Parse(`
<p>Hi {{.Name}},</p>
<p>Your account is ready. Open the app, find someone in the directory and say hello.</p>
`))

type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSender(host string, port int, username, password, from string) *Sender {
	return &Sender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *Sender) SendWelcomeEmail(to, name string) error {
	var body bytes.Buffer
	if err := welcomeTemplate.Execute(&body, map[string]string{"Name": name}); err != nil {
		return fmt.Errorf("failed to render welcome email: %w", err)
	}
	return s.send(to, "Welcome", body.String())
}

func (s *Sender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	return s.dialer.DialAndSend(m)
}
