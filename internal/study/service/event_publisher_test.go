package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"dailystudy/internal/common/mq"
	"dailystudy/internal/study/model"
	"dailystudy/internal/study/service"
	"dailystudy/internal/testutil"
)

type recordingProducer struct {
	topic    string
	messages []*mq.Message
	err      error
}

func (p *recordingProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	p.topic = topic
	p.messages = append(p.messages, message)
	return p.err
}

func TestCrawlEventPublisherPublishFinished(t *testing.T) {
	producer := &recordingProducer{}
	publisher := service.NewCrawlEventPublisher(producer, "study.crawl.finished")

	err := publisher.PublishFinished(context.Background(), model.CrawlFinishedEvent{
		HistoryID:        7,
		Success:          true,
		RecordsProcessed: 3,
		StartTime:        fixedNow,
		EndTime:          fixedNow.Add(time.Minute),
	})
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, producer.topic, "study.crawl.finished")
	testutil.AssertEqual(t, len(producer.messages), 1)

	msg := producer.messages[0]
	testutil.AssertTrue(t, strings.HasPrefix(msg.ID, "crawl-7-"), "message id should carry the history id")
	eventType, _ := msg.GetHeader("event-type")
	testutil.AssertEqual(t, eventType, model.CrawlFinishedEventType)

	var event model.CrawlFinishedEvent
	testutil.MustUnmarshalJSON(t, msg.Body, &event)
	testutil.AssertEqual(t, event.EventType, model.CrawlFinishedEventType)
	testutil.AssertEqual(t, event.HistoryID, int64(7))
	testutil.AssertEqual(t, event.RecordsProcessed, 3)
	testutil.AssertTrue(t, event.StartTime.Equal(fixedNow), "start time should round-trip")

	var raw map[string]interface{}
	testutil.AssertNil(t, json.Unmarshal(msg.Body, &raw))
	_, hasError := raw["error"]
	testutil.AssertFalse(t, hasError, "empty error should be omitted")
}

func TestCrawlEventPublisherErrors(t *testing.T) {
	var nilPublisher *service.CrawlEventPublisher
	testutil.AssertNotNil(t, nilPublisher.PublishFinished(context.Background(), model.CrawlFinishedEvent{}))

	noTopic := service.NewCrawlEventPublisher(&recordingProducer{}, "")
	testutil.AssertNotNil(t, noTopic.PublishFinished(context.Background(), model.CrawlFinishedEvent{}))

	failing := service.NewCrawlEventPublisher(&recordingProducer{err: errors.New("broker down")}, "t")
	err := failing.PublishFinished(context.Background(), model.CrawlFinishedEvent{})
	testutil.AssertTrue(t, err != nil && strings.Contains(err.Error(), "broker down"), "producer error should surface")
}
