package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendJobStateNotice(toEmail, jobID, state string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

func (s *emailService) SendJobStateNotice(toEmail, jobID, state string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("Annotation job %s: %s", jobID, state))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your annotation job finished</h2>
			<p>Job <code>%s</code> reached state <b>%s</b>.</p>
			<p>You can inspect the results in the result browser.</p>
		</div>
	`, jobID, state)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send state notice to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] State notice sent to %s\n", toEmail)
	return nil
}
