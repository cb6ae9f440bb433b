package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed_Now(t *testing.T) {
	at := time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC)
	c := Fixed(at)

	assert.True(t, at.Equal(c.Now()))
	assert.True(t, c.Now().Equal(c.Now()))
}

func TestReal_Location(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)

	assert.Equal(t, loc, New(loc).Now().Location())
	assert.Equal(t, time.UTC, New(nil).Now().Location())
	assert.Equal(t, time.UTC, Real{}.Now().Location())
}
