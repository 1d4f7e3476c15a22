package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"dailystudy/internal/common/mq"
	"dailystudy/internal/study/model"

	"github.com/google/uuid"
)

const eventTypeHeader = "event-type"

// CrawlEventPublisher publishes crawl lifecycle events to the message queue.
type CrawlEventPublisher struct {
	producer mq.Producer
	topic    string
}

// NewCrawlEventPublisher creates a new crawl event publisher.
func NewCrawlEventPublisher(producer mq.Producer, topic string) *CrawlEventPublisher {
	return &CrawlEventPublisher{producer: producer, topic: topic}
}

// PublishFinished publishes a crawl.finished event keyed by history id.
func (p *CrawlEventPublisher) PublishFinished(ctx context.Context, event model.CrawlFinishedEvent) error {
	if p == nil || p.producer == nil {
		return errors.New("crawl event publisher is nil")
	}
	if p.topic == "" {
		return errors.New("crawl event topic is empty")
	}
	if event.EventType == "" {
		event.EventType = model.CrawlFinishedEventType
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal crawl event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = "crawl-" + strconv.FormatInt(event.HistoryID, 10) + "-" + uuid.NewString()
	message.SetHeader(eventTypeHeader, event.EventType)
	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		return fmt.Errorf("publish crawl event failed: %w", err)
	}
	return nil
}
