package model

import "time"

const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// RatingDimensionNames names the values returned by Rating.Dimensions.
var RatingDimensionNames = [4]string{"communication", "skill", "attitude", "punctuality"}

// Rating is one participant's assessment of the other after a completed session.
// One rating per (SessionID, RaterID).
type Rating struct {
	ID            int64     `json:"id"`
	SessionID     int64     `json:"session_id"`
	RaterID       int64     `json:"rater_id"`
	RateeID       int64     `json:"ratee_id"`
	Communication int       `json:"communication"`
	Skill         int       `json:"skill"`
	Attitude      int       `json:"attitude"`
	Punctuality   int       `json:"punctuality"`
	CreatedAt     time.Time `json:"created_at"`
}

// Average returns the mean of the four dimensions.
func (r *Rating) Average() float64 {
	sum := 0
	for _, v := range r.Dimensions() {
		sum += v
	}
	return float64(sum) / 4
}

// Dimensions returns the four dimensions in a fixed order
func (r *Rating) Dimensions() [4]int {
	return [4]int{r.Communication, r.Skill, r.Attitude, r.Punctuality}
}

// RatingSummary aggregates the ratings one user received.
type RatingSummary struct {
	Count         int     `json:"count"`
	SumOfAverages float64 `json:"sum_of_averages"`
}

// Mean returns the mean per-rating average, 0 when there are no ratings.
func (s RatingSummary) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.SumOfAverages / float64(s.Count)
}
