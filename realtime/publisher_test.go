package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cinebook/models"
)

func TestNew_MissingKeysDisablesPublisher(t *testing.T) {
	p := New("", "", "", "server")

	assert.False(t, p.Enabled())

	// Publishes on a disabled publisher must be silent no-ops.
	p.PublishSeatUpdate("show_1", "A1", "locked", "user-1")
	p.PublishBookingConfirmed("user-1", &models.Booking{ID: "bk_1"})
	p.PublishCatalogUpdate("movies", 3)
}

func TestEnabled_NilReceiver(t *testing.T) {
	var p *Publisher
	assert.False(t, p.Enabled())
}

func TestNew_WithKeys(t *testing.T) {
	p := New("pub-key", "sub-key", "", "server")
	assert.True(t, p.Enabled())
}
