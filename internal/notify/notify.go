// Package notify carries email notifications between the movie API and the
// email worker over RabbitMQ.
package notify

import (
	"context"
	"fmt"

	"github.com/Clark-Hu/movie-directory/internal/domain"
)

// Publisher sends email notifications to the worker queue.
type Publisher interface {
	Publish(ctx context.Context, msg domain.EmailMessage) error
}

// Noop discards every message. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, domain.EmailMessage) error { return nil }

// MovieCreated builds the message announcing a new catalog entry.
func MovieCreated(recipient string, movie domain.Movie) domain.EmailMessage {
	return domain.EmailMessage{
		Recipient: recipient,
		Subject:   "New Movie Created",
		Body: fmt.Sprintf("A new movie has been added to the catalog: %s (%d) by %s",
			movie.Title, movie.Year, movie.Director.Name),
	}
}
