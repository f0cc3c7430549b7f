package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasLocationAccess(t *testing.T) {
	locA, locB := "loc-a", "loc-b"

	tests := []struct {
		name     string
		user     *UserContext
		location string
		want     bool
	}{
		{
			name:     "no user in context",
			user:     nil,
			location: locA,
			want:     false,
		},
		{
			name:     "admin bypasses scoping",
			user:     &UserContext{IsAdmin: true, LocationIDs: []string{locB}},
			location: locA,
			want:     true,
		},
		{
			name:     "scoped user, granted location",
			user:     &UserContext{LocationIDs: []string{locA}},
			location: locA,
			want:     true,
		},
		{
			name:     "scoped user, other location",
			user:     &UserContext{LocationIDs: []string{locB}},
			location: locA,
			want:     false,
		},
		{
			// Empty set means unscoped: grants narrow access, not widen it.
			name:     "unscoped user sees every location",
			user:     &UserContext{},
			location: locA,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.user != nil {
				ctx = WithUser(ctx, tt.user)
			}
			assert.Equal(t, tt.want, HasLocationAccess(ctx, tt.location))
		})
	}
}
