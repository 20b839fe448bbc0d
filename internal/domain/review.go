package domain

import "time"

// Sentiment labels attached to review comments.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Review is a user's rating of a movie.
type Review struct {
	ID         string    `db:"id" json:"id"`
	MovieID    string    `db:"movie_id" json:"movieId"`
	AuthorID   string    `db:"author_id" json:"authorId"`
	AuthorName string    `db:"author_name" json:"authorName"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment"`
	Sentiment  string    `db:"sentiment" json:"sentiment"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
