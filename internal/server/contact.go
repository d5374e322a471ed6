package server

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/config"
)

// ContactMessage is a submission of the contact form.
type ContactMessage struct {
	Name    string `form:"fullName" binding:"required,max=200"`
	Email   string `form:"email" binding:"required,email"`
	Message string `form:"message" binding:"required,max=5000"`
}

// Mailer delivers contact messages.
type Mailer interface {
	Send(ctx context.Context, msg ContactMessage) error
}

// SMTPMailer sends contact messages through an SMTP relay with plain auth.
type SMTPMailer struct {
	cfg      config.SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg ContactMessage) error {
	if m.cfg.User == "" || m.cfg.Pass == "" {
		return errors.New("SMTP credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	name := oneLine(msg.Name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, msg.Email, msg.Message)

	raw := []byte("To: " + m.cfg.ToEmail + "\r\n" +
		"Subject: Portfolio Contact: " + name + "\r\n" +
		"From: " + m.cfg.User + "\r\n" +
		"Reply-To: " + oneLine(msg.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	err := m.sendMail(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.User, []string{m.cfg.ToEmail}, raw)
	return errors.Wrap(err, "failed to send contact email")
}

// oneLine strips line breaks so user input cannot inject mail headers.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (s *Server) handleContactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact", gin.H{"title": "Contact Me"})
}

func (s *Server) handleContact(c *gin.Context) {
	var msg ContactMessage
	if err := c.ShouldBind(&msg); err != nil {
		c.HTML(http.StatusOK, "contact-error", gin.H{
			"error": "Please provide your name, a valid email address and a message.",
		})
		return
	}
	if s.mailer == nil {
		s.logger.Warn("Contact form submitted but no mailer is configured")
		c.HTML(http.StatusOK, "contact-error", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	if err := s.mailer.Send(c.Request.Context(), msg); err != nil {
		s.logger.Error("Error sending email", zap.Error(err))
		c.HTML(http.StatusOK, "contact-error", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	s.logger.Info("Contact email sent", zap.String("name", msg.Name))
	c.HTML(http.StatusOK, "contact-success", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}
