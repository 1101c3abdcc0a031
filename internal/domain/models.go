package domain

import "time"

// Difficulty is the coarse tier assigned to a question.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// ExtractedQuestion is the question half of a parsed block.
type ExtractedQuestion struct {
	Ordinal int
	Stem    string
	Options []string
}

// ExtractedAnswer is the answer half of a parsed block.
// Letter is "A" when no marker was found; Detected tells the two cases apart.
type ExtractedAnswer struct {
	Letter      string
	Detected    bool
	Explanation string
}

// Index converts the answer letter to a zero-based option index.
// The result is not checked against the option count.
func (a ExtractedAnswer) Index() int {
	if a.Letter == "" {
		return 0
	}
	return int(a.Letter[0]) - 'A'
}

// Classification holds the inferred topic, tags and difficulty.
type Classification struct {
	PrimaryTopic   string
	SecondaryTopic string // empty when absent
	Tags           []string
	Difficulty     Difficulty
}

// Metadata records where a question came from.
type Metadata struct {
	CreatedAt      time.Time `json:"createdAt"`
	Contributor    string    `json:"contributor"`
	Verified       bool      `json:"verified"`
	Source         string    `json:"source"`
	SourceRepo     string    `json:"sourceRepo"`
	ImportDate     string    `json:"importDate"`
	QuestionNumber int       `json:"questionNumber"`
	OriginalAnswer string    `json:"originalAnswer"`
}

// QuestionRecord is the normalized output unit. Its JSON shape is consumed downstream
// and must stay stable.
type QuestionRecord struct {
	ID            string     `json:"id"`
	Subject       string     `json:"subject"`
	Topic         string     `json:"topic"`
	Subtopic      *string    `json:"subtopic"`
	Difficulty    Difficulty `json:"difficulty"`
	ExamTypes     []string   `json:"examTypes"`
	Question      string     `json:"question"`
	QuestionType  string     `json:"questionType"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correctAnswer"`
	Explanation   string     `json:"explanation"`
	Tags          []string   `json:"tags"`
	TimeEstimate  int        `json:"timeEstimate"`
	Metadata      Metadata   `json:"metadata"`
}

// HasTag reports whether the record carries tag.
func (r QuestionRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Partition groups the records sharing a primary topic.
type Partition struct {
	Topic   string
	Records []QuestionRecord
}

// DatasetIndex summarizes a written dataset.
type DatasetIndex struct {
	LastUpdated    time.Time      `json:"lastUpdated"`
	TotalQuestions int            `json:"totalQuestions"`
	ExamType       string         `json:"examType"`
	Topics         []string       `json:"topics"`
	TopicCounts    map[string]int `json:"topicCounts"`
	Source         string         `json:"source"`
	Files          []string       `json:"files"`
}

// ImportReport is the outcome of a single import run.
type ImportReport struct {
	RunID       string         `json:"runId"`
	BlocksSeen  int            `json:"blocksSeen"`
	Produced    int            `json:"produced"`
	Skipped     int            `json:"skipped"`
	TopicCounts map[string]int `json:"topicCounts"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt"`
}

// ProgressEvent is emitted while an import runs.
type ProgressEvent struct {
	Type    string `json:"type"` // fetched, record, skipped, written
	Ordinal int    `json:"ordinal,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Message string `json:"message,omitempty"`
}
