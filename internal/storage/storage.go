// Package storage implements blob stores for profile pictures.
package storage

import (
	"errors"
	"fmt"

	"github.com/aidarkhanov/nanoid/v2"

	"github.com/HammerMeetNail/cotravels/internal/services"
)

var ErrInvalidName = errors.New("invalid blob name")

// objectName builds an opaque name carrying the extension of contentType.
func objectName(contentType string) (string, error) {
	ext, ok := services.AllowedImageTypes[contentType]
	if !ok {
		return "", services.ErrUnsupportedImage
	}
	id, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate blob name: %w", err)
	}
	return id + ext, nil
}

// validName accepts only names produced by objectName.
func validName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return name[0] != '.'
}
