package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/order-desk/internal/domain"
)

func TestIsAdmin(t *testing.T) {
	p := NewPolicy([]string{"A", "B", ""})

	assert.True(t, p.IsAdmin("A"))
	assert.True(t, p.IsAdmin("B"))
	assert.False(t, p.IsAdmin("D"))
	assert.False(t, p.IsAdmin(""))
	assert.Equal(t, []string{"A", "B"}, p.Admins())
}

func TestResolveRequester(t *testing.T) {
	p := NewPolicy([]string{"A", "B"})

	tests := []struct {
		name    string
		members []domain.Member
		want    string
		wantErr bool
	}{
		{
			name:    "admins bot and user",
			members: []domain.Member{{ID: "A"}, {ID: "B"}, {ID: "C", Bot: true}, {ID: "D"}},
			want:    "D",
		},
		{
			name:    "only admins",
			members: []domain.Member{{ID: "A"}, {ID: "B"}},
			wantErr: true,
		},
		{
			name:    "only bots",
			members: []domain.Member{{ID: "C", Bot: true}},
			wantErr: true,
		},
		{
			name:    "empty channel",
			wantErr: true,
		},
		{
			name:    "first eligible member wins",
			members: []domain.Member{{ID: "E"}, {ID: "A"}, {ID: "D"}},
			want:    "E",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ResolveRequester(tt.members)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrRequesterNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}
