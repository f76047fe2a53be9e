package service

import (
	"context"
	"encoding/json"
	"strings"

	"ms-annotation-be/internal/entity"
	"ms-annotation-be/internal/pkg/logger"
	"ms-annotation-be/internal/pkg/mailer"
	"ms-annotation-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService fans out job state change events: every transition is
// logged, terminal transitions additionally notify the owner by mail when
// the owner id is an email address and a mailer is configured.
type consumerService struct {
	pubSub *gochannel.GoChannel
	topic  string
	mailer mailer.IEmailService
	logger logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topic string,
	emailService mailer.IEmailService,
	sysLogger logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub: pubSub,
		topic:  topic,
		mailer: emailService,
		logger: sysLogger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // invalid payloads would retry forever
		return
	}

	if envelope.Type != events.JobStateChanged {
		msg.Ack()
		return
	}

	jobID, _ := envelope.Data["job_id"].(string)
	owner, _ := envelope.Data["owner"].(string)
	current, _ := envelope.Data["current"].(string)
	previous, _ := envelope.Data["previous"].(string)

	cs.logger.Info("Consumer", "Job state changed", map[string]interface{}{
		"job_id": jobID, "previous": previous, "current": current,
	})

	if cs.mailer != nil && entity.IsTerminal(current) && strings.Contains(owner, "@") {
		if err := cs.mailer.SendJobStateNotice(owner, jobID, current); err != nil {
			cs.logger.Warn("Consumer", "Failed to send state notice", map[string]interface{}{
				"job_id": jobID, "error": err.Error(),
			})
		}
	}

	msg.Ack()
}
