package service

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/felixniemeyer/ai-mediator/internal/dto"
)

type IPublisherService interface {
	PublishDispatch(sessionId string) error
}

type publisherService struct {
	topicName string
	pubSub    message.Publisher
}

func NewPublisherService(topicName string, pubSub message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (ps *publisherService) PublishDispatch(sessionId string) error {
	payload, err := json.Marshal(dto.DispatchMediationMessage{SessionId: sessionId})
	if err != nil {
		return fmt.Errorf("marshal dispatch message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := ps.pubSub.Publish(ps.topicName, msg); err != nil {
		return fmt.Errorf("publish dispatch message: %w", err)
	}
	return nil
}
