package publishers

import (
	"time"

	"github.com/samvad-hq/gnews-go/pkg/gnews"
)

// Event is the payload published downstream for each newly seen article.
type Event struct {
	FeedID      string        `json:"feed_id"`
	FeedName    string        `json:"feed_name"`
	ArticleID   string        `json:"article_id"`
	Article     gnews.Article `json:"article"`
	CollectedAt time.Time     `json:"collected_at"`
}

// NewEvent constructs an Event stamped with the current UTC time.
func NewEvent(feedID, feedName, articleID string, article gnews.Article) Event {
	return Event{
		FeedID:      feedID,
		FeedName:    feedName,
		ArticleID:   articleID,
		Article:     article,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes are attached to queue/topic messages so consumers can filter without decoding.
// Empty values are omitted since SQS rejects them.
func (e Event) attributes() map[string]string {
	out := make(map[string]string, 2)
	if e.FeedID != "" {
		out["feed_id"] = e.FeedID
	}
	if e.ArticleID != "" {
		out["article_id"] = e.ArticleID
	}
	return out
}
