package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/movie-directory/internal/domain"
)

func TestMovieCreated(t *testing.T) {
	movie := domain.Movie{
		Title:    "Inception",
		Year:     2010,
		Director: domain.Director{Name: "Christopher Nolan"},
	}

	msg := MovieCreated("admin@movieapi.com", movie)

	require.Equal(t, "admin@movieapi.com", msg.Recipient)
	require.Equal(t, "New Movie Created", msg.Subject)
	require.Equal(t, "A new movie has been added to the catalog: Inception (2010) by Christopher Nolan", msg.Body)
}

func TestNoopPublish(t *testing.T) {
	var p Publisher = Noop{}
	require.NoError(t, p.Publish(context.Background(), domain.EmailMessage{}))
}
