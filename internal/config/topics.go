package config

// NSQ topics and channels.
const (
	TopicIngestTask = "ingest.task"
	ChannelBackend  = "backend"
)
