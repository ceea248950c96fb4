// internal/common/notify/notifier.go
package notify

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"fieldservice-inspection/internal/common/config"
	"fieldservice-inspection/internal/common/logger"
)

// PendencyNotifier tells the back office that a visit ended with an open
// pendency. Best effort: the submission is already committed when this runs.
type PendencyNotifier interface {
	NotifyPendency(ctx context.Context, ticketID, kind, description string)
}

// AWSNotifier sends pendency notices over SES email and SNS SMS.
type AWSNotifier struct {
	ses    *SESClient
	sns    *SNSClient
	cfg    config.NotificationConfig
	logger logger.Logger
}

func NewAWSNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*AWSNotifier, error) {
	n := &AWSNotifier{cfg: cfg, logger: log}

	if cfg.Email.Enabled {
		sesClient, err := NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		n.ses = sesClient
	}
	if cfg.SMS.Enabled {
		snsClient, err := NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		n.sns = snsClient
	}

	return n, nil
}

func (n *AWSNotifier) NotifyPendency(ctx context.Context, ticketID, kind, description string) {
	subject := fmt.Sprintf("Ticket %s: %s pendency opened", ticketID, kind)
	body := fmt.Sprintf("The technician closed the visit with a %s pendency.\n\n%s", kind, description)

	if n.ses != nil {
		_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
			Source: awssdk.String(n.cfg.Email.FromEmail),
			Destination: &sestypes.Destination{
				ToAddresses: []string{n.cfg.Email.ToEmail},
			},
			Message: &sestypes.Message{
				Subject: &sestypes.Content{Data: awssdk.String(subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: awssdk.String(body)},
				},
			},
		})
		if err != nil {
			n.logger.Warn("Pendency email send failed", map[string]interface{}{
				"ticketId": ticketID,
				"error":    err.Error(),
			})
		}
	}

	if n.sns != nil {
		_, err := n.sns.Publish(ctx, &sns.PublishInput{
			PhoneNumber: awssdk.String(n.cfg.SMS.ToPhone),
			Message:     awssdk.String(subject),
		})
		if err != nil {
			n.logger.Warn("Pendency SMS send failed", map[string]interface{}{
				"ticketId": ticketID,
				"error":    err.Error(),
			})
		}
	}
}
