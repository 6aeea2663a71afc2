package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
	// LowRatingThreshold marks records below it for review.
	LowRatingThreshold = 3
)

// FeedbackRecord is one user rating of a delivered answer. Records are never updated.
type FeedbackRecord struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Question  string    `json:"question" db:"question"`
	Solution  string    `json:"solution" db:"solution"`
	Rating    int       `json:"rating" db:"rating"`
	Comments  string    `json:"comments,omitempty" db:"comments"`
	RequestID string    `json:"request_id,omitempty" db:"request_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the FeedbackRecord model
func (FeedbackRecord) TableName() string {
	return "feedback_records"
}

// NewFeedbackRecord creates a new FeedbackRecord instance
func NewFeedbackRecord(question, solution string, rating int) *FeedbackRecord {
	return &FeedbackRecord{
		ID:        uuid.New(),
		Question:  question,
		Solution:  solution,
		Rating:    rating,
		CreatedAt: time.Now().UTC(),
	}
}

// WithComments sets the free-text comment
func (f *FeedbackRecord) WithComments(comments string) *FeedbackRecord {
	f.Comments = comments
	return f
}

// WithRequest sets the id of the HTTP request that submitted the rating
func (f *FeedbackRecord) WithRequest(requestID string) *FeedbackRecord {
	f.RequestID = requestID
	return f
}

// Flagged reports whether the rating is low enough to need review.
func (f *FeedbackRecord) Flagged() bool {
	return f.Rating < LowRatingThreshold
}

// ValidRating reports whether rating is within [MinRating, MaxRating].
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// FeedbackStats aggregates the feedback log.
type FeedbackStats struct {
	Count          int         `json:"count"`
	MeanRating     float64     `json:"meanRating"`
	LowRatingCount int         `json:"lowRatingCount"`
	Breakdown      map[int]int `json:"breakdown"`
}

// NewFeedbackStats returns empty stats with a zeroed 1..5 breakdown.
func NewFeedbackStats() *FeedbackStats {
	breakdown := make(map[int]int, MaxRating)
	for r := MinRating; r <= MaxRating; r++ {
		breakdown[r] = 0
	}
	return &FeedbackStats{Breakdown: breakdown}
}

// Add folds one rating into the aggregate.
func (s *FeedbackStats) Add(rating int) {
	s.AddCount(rating, 1)
}

// AddCount folds n ratings of the same value into the aggregate.
func (s *FeedbackStats) AddCount(rating, n int) {
	if n <= 0 {
		return
	}
	total := s.MeanRating * float64(s.Count)
	s.Count += n
	s.MeanRating = (total + float64(rating*n)) / float64(s.Count)
	if rating < LowRatingThreshold {
		s.LowRatingCount += n
	}
	s.Breakdown[rating] += n
}
