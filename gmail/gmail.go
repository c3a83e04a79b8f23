package gmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

const (
	gmailIMAPHost    = "imap.gmail.com"
	gmailIMAPAddress = "imap.gmail.com:993"
	gmailSMTPHost    = "smtp.gmail.com"
	gmailSMTPAddress = "smtp.gmail.com:465"
	gmailAllMail     = "[Gmail]/All Mail"

	envGmailAddress     = "GMAIL_ADDRESS"
	envGmailAppPassword = "GMAIL_APP_PASSWORD"
)

// Credentials identify the Gmail account used for IMAP and SMTP.
type Credentials struct {
	Address     string
	AppPassword string
}

// LoadCredentials reads GMAIL_ADDRESS and GMAIL_APP_PASSWORD from the process
// environment.
func LoadCredentials() (Credentials, error) {
	return LoadCredentialsFrom(os.Getenv)
}

// LoadCredentialsFrom reads GMAIL_ADDRESS and GMAIL_APP_PASSWORD through
// getenv. Spaces in the app password are dropped so the value can be pasted
// as Google displays it.
func LoadCredentialsFrom(getenv func(string) string) (Credentials, error) {
	address := strings.TrimSpace(getenv(envGmailAddress))
	if address == "" {
		return Credentials{}, fmt.Errorf("gmail: %s is required", envGmailAddress)
	}

	appPassword := strings.ReplaceAll(getenv(envGmailAppPassword), " ", "")
	if appPassword == "" {
		return Credentials{}, fmt.Errorf("gmail: %s is required", envGmailAppPassword)
	}

	return Credentials{Address: address, AppPassword: appPassword}, nil
}

func connectIMAP(ctx context.Context, creds Credentials) (*client.Client, error) {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: gmailIMAPHost}}
	conn, err := dialer.DialContext(ctx, "tcp", gmailIMAPAddress)
	if err != nil {
		return nil, fmt.Errorf("gmail: IMAP dial failed: %w", err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("gmail: IMAP greeting failed: %w", err)
	}

	if err := imapClient.Login(creds.Address, creds.AppPassword); err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("gmail: IMAP login failed: %w", err)
	}

	return imapClient, nil
}

func connectSMTP(ctx context.Context, creds Credentials) (*smtp.Client, error) {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: gmailSMTPHost}}
	conn, err := dialer.DialContext(ctx, "tcp", gmailSMTPAddress)
	if err != nil {
		return nil, fmt.Errorf("gmail: SMTP TLS dial failed: %w", err)
	}

	smtpClient := smtp.NewClient(conn)
	auth := sasl.NewPlainClient("", creds.Address, creds.AppPassword)
	if err := smtpClient.Auth(auth); err != nil {
		smtpClient.Close()
		return nil, fmt.Errorf("gmail: SMTP auth failed: %w", err)
	}

	return smtpClient, nil
}
