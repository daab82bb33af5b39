package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendInvitation(toEmail, participantName, sessionName, link string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) SendInvitation(toEmail, participantName, sessionName, link string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, s.senderName))
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("You are invited to the mediation \"%s\"", sessionName))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Hello %s,</h2>
			<p>You have been invited to share your perspective in the mediation session <b>%s</b>.</p>
			<p>Everyone involved writes down their view of the situation. Once all perspectives
			are in, each participant receives individual mediation advice.</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Share your perspective</a>
			<p>Or copy this link:</p>
			<p>%s</p>
			<p>The link is personal, please don't share it.</p>
		</div>
	`, participantName, sessionName, link, link)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send invitation to %s: %w", toEmail, err)
	}

	return nil
}
