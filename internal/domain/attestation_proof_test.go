package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
)

func TestAttestationProof_Token(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		proof  domain.AttestationProof
		want   string
		wantOK bool
	}{
		{
			name:   "token present",
			proof:  domain.NewAttestationProof(map[string]string{"token": "dev-token-photo-service-12345"}),
			want:   "dev-token-photo-service-12345",
			wantOK: true,
		},
		{
			name:   "token absent",
			proof:  domain.NewAttestationProof(map[string]string{"other": "x"}),
			want:   "",
			wantOK: false,
		},
		{
			name:   "nil fields",
			proof:  domain.NewAttestationProof(nil),
			want:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Act
			got := tt.proof.Token()
			field, ok := tt.proof.Field("token")

			// Assert
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, field)
		})
	}
}
