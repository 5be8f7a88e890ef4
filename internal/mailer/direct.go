package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// DirectSink sends a message synchronously over SMTP without a queue in
// front of it: the dev/test fallback the §6 email sink contract calls
// for when no broker is configured. A single outbound send over
// net/smtp is too small a concern to reach for a library over — the
// pack's only SMTP client usage (email-service's smtp_sender.go) depends
// on github.com/wneessen/go-mail, which is absent from every go.mod and
// go.sum in this pack, i.e. dangling in the teacher snapshot itself; this
// sink uses net/smtp plain-auth instead rather than reproducing that rot.
type DirectSink struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
}

func NewDirectSink(addr, username, password, from string) *DirectSink {
	return &DirectSink{Addr: addr, Username: username, Password: password, From: from}
}

func (d *DirectSink) Send(ctx context.Context, msg Message) error {
	host := d.Addr
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	var auth smtp.Auth
	if d.Username != "" {
		auth = smtp.PlainAuth("", d.Username, d.Password, host)
	}

	from := d.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, d.From)
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", from, msg.To, msg.Subject, msg.Text)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(d.Addr, auth, d.From, []string{msg.To}, []byte(body))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
