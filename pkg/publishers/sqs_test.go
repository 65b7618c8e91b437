package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/samvad-hq/gnews-go/pkg/gnews"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSPublisherSendsEvent(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{
		id:       "queue",
		typ:      TypeSQS,
		queueURL: "https://sqs.local/queue",
		client:   client,
		log:      noopLogger{},
	}

	evt := NewEvent("world", "World", "a1", gnews.Article{Title: "Hello"})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://sqs.local/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["feed_id"]
	if !ok || aws.ToString(attr.StringValue) != "world" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("feed_id attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"article_id":"a1"`) {
		t.Fatalf("body missing article_id: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSPublisherOmitsEmptyAttributes(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "queue", typ: TypeSQS, queueURL: "q", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), Event{ArticleID: "a1"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if _, ok := client.input.MessageAttributes["feed_id"]; ok {
		t.Fatalf("empty feed_id should not be sent as an attribute")
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	client := &fakeSQSClient{err: errors.New("boom")}
	pub := &sqsPublisher{id: "queue", typ: TypeSQS, queueURL: "q", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), Event{ArticleID: "a1"}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
