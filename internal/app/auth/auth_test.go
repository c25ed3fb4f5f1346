package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		wantOK  bool
		subject string
	}{
		{name: "no session", ctx: context.Background()},
		{name: "empty subject", ctx: NewContext(context.Background(), Session{})},
		{name: "admin", ctx: NewContext(context.Background(), Session{Subject: "admin"}), wantOK: true, subject: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := FromContext(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.subject, s.Subject)
			assert.Equal(t, tt.wantOK, Authenticated(tt.ctx))
		})
	}
}
