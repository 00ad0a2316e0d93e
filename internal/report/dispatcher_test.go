package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inbox-rpa/internal/config"
)

func TestDispatchUnreachableTransport(t *testing.T) {
	d := NewSMTPDispatcher(config.SMTPConfig{
		Host: "127.0.0.1",
		Port: 1,
		User: "bot@example.com",
	})

	err := d.Dispatch("operator@example.com", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "operator@example.com")
}
