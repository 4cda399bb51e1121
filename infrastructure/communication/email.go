package communication

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the part of the SES client used to send mail.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type EmailOption struct {
	From string   `yaml:"sesFrom" validate:"omitempty,email"`
	To   []string `yaml:"sesTo" validate:"required_with=From,dive,email"`
}

// Email mails plain-text notices to the school administrators through SES.
type Email struct {
	client  SESAPI
	options EmailOption
}

func NewEmail(ctx context.Context, region string, options EmailOption) (*Email, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewEmailWithClient(ses.NewFromConfig(cfg), options), nil
}

func NewEmailWithClient(client SESAPI, options EmailOption) *Email {
	return &Email{client: client, options: options}
}

func (e *Email) Send(ctx context.Context, subject, text string) error {
	raw, err := BuildEmail(e.options.From, e.options.To, subject, text)
	if err != nil {
		return err
	}

	_, err = e.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(e.options.From),
		Destinations: e.options.To,
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// BuildEmail renders a UTF-8 plain-text message ready for SendRawEmail.
func BuildEmail(from string, to []string, subject, text string) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("encode email body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode email body: %w", err)
	}
	return buf.Bytes(), nil
}
