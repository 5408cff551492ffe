package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService defines the interface for sending transactional email
type EmailService interface {
	SendInviteEmail(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPaymentReceipt(ctx context.Context, email, planName, formattedPrice, transactionID string) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

func (s *AWSSESEmailService) send(ctx context.Context, email, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("email", email),
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("email", email),
		slog.String("subject", subject),
		slog.String("message_id", *result.MessageId))
	return nil
}

// SendInviteEmail sends an invitation link for setting up an account
func (s *AWSSESEmailService) SendInviteEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/accept-invite?token=%s", s.baseURL, token)
	hours := int(time.Until(expiresAt).Hours())

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>You've been invited</h1>
        <p>An administrator created a library account for you. Click the link below to choose a password and activate it:</p>
        <p><a href="%s" style="display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Set Up Account</a></p>
        <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
        <p><strong>This link expires in %d hours.</strong></p>
        <p>If you weren't expecting this invitation, you can ignore this email.</p>
    </div>
</body>
</html>
`, link, link, hours)

	textBody := fmt.Sprintf(`You've been invited

An administrator created a library account for you. Open the link below to choose a password and activate it:

%s

This link expires in %d hours.

If you weren't expecting this invitation, you can ignore this email.
`, link, hours)

	return s.send(ctx, email, "Your library account invitation", htmlBody, textBody)
}

// SendPasswordResetEmail sends a password reset link
func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	minutes := int(time.Until(expiresAt).Minutes())

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Reset your password</h1>
        <p>We received a request to reset your password. Click the link below to choose a new one:</p>
        <p><a href="%s" style="display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Reset Password</a></p>
        <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
        <p><strong>This link expires in %d minutes.</strong></p>
        <p>If you didn't request this, you can ignore this email. Your password will not change.</p>
    </div>
</body>
</html>
`, link, link, minutes)

	textBody := fmt.Sprintf(`Reset your password

We received a request to reset your password. Open the link below to choose a new one:

%s

This link expires in %d minutes.

If you didn't request this, you can ignore this email. Your password will not change.
`, link, minutes)

	return s.send(ctx, email, "Reset your password", htmlBody, textBody)
}

// SendPaymentReceipt sends a payment confirmation receipt
func (s *AWSSESEmailService) SendPaymentReceipt(ctx context.Context, email, planName, formattedPrice, transactionID string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Payment received</h1>
        <p>Thank you for your purchase.</p>
        <table style="border-collapse: collapse;">
            <tr><td style="padding: 4px 12px 4px 0;"><strong>Plan</strong></td><td>%s</td></tr>
            <tr><td style="padding: 4px 12px 4px 0;"><strong>Amount</strong></td><td>%s</td></tr>
            <tr><td style="padding: 4px 12px 4px 0;"><strong>Transaction</strong></td><td>%s</td></tr>
        </table>
        <p>If you haven't created your account yet, use the signup link shown after checkout.</p>
    </div>
</body>
</html>
`, planName, formattedPrice, transactionID)

	textBody := fmt.Sprintf(`Payment received

Thank you for your purchase.

Plan: %s
Amount: %s
Transaction: %s

If you haven't created your account yet, use the signup link shown after checkout.
`, planName, formattedPrice, transactionID)

	return s.send(ctx, email, "Your payment receipt", htmlBody, textBody)
}
