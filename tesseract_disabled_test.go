//go:build !tesseract

package main

import (
	"errors"
	"testing"
)

func TestNewTesseractRecognizer_NotBuilt(t *testing.T) {
	r, err := newTesseractRecognizer([]string{"eng"})
	if !errors.Is(err, errTesseractNotBuilt) || r != nil {
		t.Errorf("newTesseractRecognizer() = %v, %v", r, err)
	}
}
