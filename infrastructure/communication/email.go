package communication

import (
	"bytes"
	"context"
	"fmt"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Email sends sweep failures through SES. Info messages are not mailed.
type Email struct {
	From    string
	To      []string
	Subject string
	Timeout time.Duration

	client *ses.Client
}

func NewEmail(ctx context.Context, from string, to []string, subject string) (*Email, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if subject == "" {
		subject = "punchsync"
	}
	return &Email{
		From:    from,
		To:      to,
		Subject: subject,
		Timeout: 10 * time.Second,
		client:  ses.NewFromConfig(cfg),
	}, nil
}

func (e *Email) Info(message string) error {
	return nil
}

func (e *Email) Error(message string) error {
	raw, err := BuildEmail(e.From, e.To, e.Subject+": sweep failures", message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.Timeout)
	defer cancel()

	_, err = e.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage: &types.RawMessage{Data: raw},
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// BuildEmail renders a plain text message in quoted-printable.
func BuildEmail(from string, to []string, subject, text string) ([]byte, error) {
	if from == "" || len(to) == 0 {
		return nil, fmt.Errorf("email needs a sender and at least one recipient")
	}

	var raw bytes.Buffer
	fmt.Fprintf(&raw, "From: %s\r\n", from)
	fmt.Fprintf(&raw, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&raw, "Subject: %s\r\n", subject)
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	raw.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	raw.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&raw)
	if _, err := qp.Write([]byte(text)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return raw.Bytes(), nil
}
