package kafka

import kafkago "github.com/segmentio/kafka-go"

// WriterMetrics summarizes writer statistics since the last call.
type WriterMetrics struct {
	Writes       int64   `json:"writes"`
	Messages     int64   `json:"messages"`
	Errors       int64   `json:"errors"`
	Retries      int64   `json:"retries"`
	AvgWriteTime float64 `json:"avg_write_time_ms"`
}

func CollectWriterMetrics(stats kafkago.WriterStats) WriterMetrics {
	return WriterMetrics{
		Writes:       stats.Writes,
		Messages:     stats.Messages,
		Errors:       stats.Errors,
		Retries:      stats.Retries,
		AvgWriteTime: float64(stats.WriteTime.Avg) / 1e6,
	}
}
