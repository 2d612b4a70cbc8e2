package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProofUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int
		wantErr  bool
	}{
		{"png ok", "proof.png", 1024, false},
		{"jpg ok", "payment.jpg", 1024, false},
		{"jpeg uppercase ok", "PAYMENT.JPEG", 1024, false},
		{"pdf ok", "receipt.pdf", 1024, false},
		{"at size cap", "proof.png", MaxProofFileSize, false},
		{"too large", "proof.png", MaxProofFileSize + 1, true},
		{"bad extension", "malware.exe", 1024, true},
		{"no extension", "proof", 1024, true},
		{"empty filename", "", 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProofUpload(tt.filename, tt.size)
			if tt.wantErr {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello", SanitizeText("  hello  "))
	assert.Equal(t, "scriptalert(1)/script", SanitizeText("<script>alert(1)</script>"))
	assert.Equal(t, "", SanitizeText("   "))

	long := strings.Repeat("a", 3000)
	assert.Len(t, SanitizeText(long), 2000)
}
