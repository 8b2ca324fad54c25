package insurer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"claims_intake_backend/platform/config"
)

// Attachment is one case file attached to the claim email.
type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ClaimEmail is the rendered claim notification sent to the insurer.
type ClaimEmail struct {
	To           string
	ClientName   string
	ClientPhone  string
	ClientCNP    string
	ClientIBAN   string
	VictimPlate  string
	GuiltyPlate  string
	Resolution   string
	Attachments  []Attachment
}

// RelayEmail is a claimant message forwarded to the insurer after submission.
type RelayEmail struct {
	To         string
	ClientName string
	Text       string
}

// Mailer delivers claim emails. Interface so the submission flow can be
// tested with a capture fake.
type Mailer interface {
	SendClaim(ctx context.Context, email ClaimEmail) error
	SendRelay(ctx context.Context, email RelayEmail) error
}

// SMTPMailer implements Mailer with a direct SMTP connection via go-mail.
type SMTPMailer struct {
	cfg config.InsurerMailConfig
}

func NewSMTPMailer(cfg config.InsurerMailConfig) *SMTPMailer {
	if !cfg.IsInsurerMailEnabled() {
		return nil
	}
	return &SMTPMailer{cfg: cfg}
}

var claimEmailTemplate = template.Must(template.New("claim").Parse(`
<html><body>
<p>Bună ziua,</p>
<p>Vă notificăm deschiderea unui dosar de daună RCA pentru clientul nostru:</p>
<ul>
  <li>Nume: {{.ClientName}}</li>
  <li>Telefon: {{.ClientPhone}}</li>
  {{if .ClientCNP}}<li>CNP: {{.ClientCNP}}</li>{{end}}
  {{if .ClientIBAN}}<li>IBAN despăgubire: {{.ClientIBAN}}</li>{{end}}
  {{if .VictimPlate}}<li>Vehicul păgubit: {{.VictimPlate}}</li>{{end}}
  {{if .GuiltyPlate}}<li>Vehicul vinovat: {{.GuiltyPlate}}</li>{{end}}
  <li>Modalitate de despăgubire: {{.Resolution}}</li>
</ul>
<p>Documentele dosarului sunt atașate acestui email.</p>
<p>Vă rugăm să ne comunicați numărul dosarului de daună și oferta de despăgubire.</p>
</body></html>`))

func (m *SMTPMailer) SendClaim(ctx context.Context, email ClaimEmail) error {
	if m == nil {
		return fmt.Errorf("insurer mail is not configured")
	}

	var body bytes.Buffer
	if err := claimEmailTemplate.Execute(&body, email); err != nil {
		return fmt.Errorf("render claim email: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.cfg.GetMailFromName(), m.cfg.GetMailFromAddress()); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	if cc := m.cfg.GetClaimsCCAddress(); cc != "" {
		if err := msg.Cc(cc); err != nil {
			return fmt.Errorf("smtp cc: %w", err)
		}
	}
	msg.Subject(fmt.Sprintf("Avizare dauna RCA - %s", email.ClientName))
	msg.SetBodyString(gomail.TypeTextHTML, body.String())

	for _, att := range email.Attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	return m.send(ctx, msg)
}

// SendRelay forwards a claimant message to the insurer mailbox the claim was
// filed with.
func (m *SMTPMailer) SendRelay(ctx context.Context, email RelayEmail) error {
	if m == nil {
		return fmt.Errorf("insurer mail is not configured")
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.cfg.GetMailFromName(), m.cfg.GetMailFromAddress()); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(fmt.Sprintf("Mesaj client dosar RCA - %s", email.ClientName))
	msg.SetBodyString(gomail.TypeTextPlain,
		fmt.Sprintf("Mesaj transmis de %s:\n\n%s", email.ClientName, email.Text))

	return m.send(ctx, msg)
}

func (m *SMTPMailer) send(ctx context.Context, msg *gomail.Msg) error {
	client, err := gomail.NewClient(m.cfg.GetSMTPHost(),
		gomail.WithPort(m.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.GetSMTPUsername()),
		gomail.WithPassword(m.cfg.GetSMTPPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(30*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
