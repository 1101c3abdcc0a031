package app

import (
	"time"

	"saa-question-importer/internal/domain"
)

// IndexFileName is the name of the dataset summary written next to the partitions.
const IndexFileName = "index.json"

// PartitionFileName returns the file name holding a topic's records.
func PartitionFileName(topic string) string {
	return topic + "-questions.json"
}

// PartitionByTopic groups records by primary topic. Topics appear in the order they are
// first seen and records keep their input order within a topic.
func PartitionByTopic(records []domain.QuestionRecord) []domain.Partition {
	var parts []domain.Partition
	pos := make(map[string]int)
	for _, r := range records {
		i, ok := pos[r.Topic]
		if !ok {
			i = len(parts)
			pos[r.Topic] = i
			parts = append(parts, domain.Partition{Topic: r.Topic})
		}
		parts[i].Records = append(parts[i].Records, r)
	}
	return parts
}

// BuildIndex summarizes partitions for index.json.
func BuildIndex(parts []domain.Partition, info DatasetInfo, now time.Time) domain.DatasetIndex {
	index := domain.DatasetIndex{
		LastUpdated: now.UTC(),
		ExamType:    info.ExamType,
		Topics:      make([]string, 0, len(parts)),
		TopicCounts: make(map[string]int, len(parts)),
		Source:      info.SourceRepo,
		Files:       make([]string, 0, len(parts)),
	}
	for _, p := range parts {
		index.TotalQuestions += len(p.Records)
		index.Topics = append(index.Topics, p.Topic)
		index.TopicCounts[p.Topic] = len(p.Records)
		index.Files = append(index.Files, PartitionFileName(p.Topic))
	}
	return index
}
