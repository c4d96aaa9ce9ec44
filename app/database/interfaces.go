package database

type RunRepository interface {
	RecordFeedRun(run FeedRun) error
	ListRecent(limit int) ([]FeedRun, error)
	ListForFeed(feedURL string, limit int) ([]FeedRun, error)
}
