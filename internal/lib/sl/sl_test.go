package sl_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/subly/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	err := fmt.Errorf("storage.UpdateNextBillingDate: %w", errors.New("connection reset"))
	attr := sl.Err(err)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("storage.UpdateNextBillingDate: connection reset"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	attr := sl.Err(nil)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "<nil>", attr.Value.String())
}

func TestOp(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	log.Error("sweep failed", sl.Op("services.scheduler.Run"), sl.Err(errors.New("boom")))

	assert.Equal(t, "level=ERROR msg=\"sweep failed\" op=services.scheduler.Run error=boom\n", buf.String())
}
