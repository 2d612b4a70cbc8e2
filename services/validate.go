package services

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxProofFileSize caps payment-proof uploads at 8MB.
const MaxProofFileSize = 8 << 20

var allowedProofExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".pdf":  true,
}

// ValidateProofUpload checks a payment-proof attachment. The returned
// ValidationError message is safe to show to the uploader.
func ValidateProofUpload(filename string, size int) error {
	if filename == "" {
		return &ValidationError{Reason: "no file attached"}
	}
	if size > MaxProofFileSize {
		return &ValidationError{Reason: fmt.Sprintf("file too large, maximum size is %dMB", MaxProofFileSize/1024/1024)}
	}
	if !allowedProofExtensions[strings.ToLower(filepath.Ext(filename))] {
		return &ValidationError{Reason: "invalid file type, allowed: .png, .jpg, .jpeg, .pdf"}
	}
	return nil
}

// SanitizeText strips markup-significant characters from free-text user
// input and caps its length.
func SanitizeText(input string) string {
	cleaned := strings.NewReplacer("<", "", ">", "").Replace(input)
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > 2000 {
		cleaned = cleaned[:2000]
	}
	return cleaned
}
