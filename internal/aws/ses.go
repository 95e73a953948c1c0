package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SendEmail sends a plain text message through SES. The sender must be a
// verified identity.
func (c *Client) SendEmail(ctx context.Context, from string, to []string, subject, body string) (string, error) {
	output, err := c.SES.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &sestypes.Destination{ToAddresses: to},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email from %s: %w", from, err)
	}

	id := deref(output.MessageId)
	c.log.Info().Str("from", from).Strs("to", to).Str("message_id", id).Msg("sent email")
	return id, nil
}
