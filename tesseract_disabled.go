//go:build !tesseract

package main

import (
	"errors"

	"plate_reader/internal/pipeline"
)

var errTesseractNotBuilt = errors.New("RECOGNIZER=tesseract needs a binary built with -tags tesseract")

func newTesseractRecognizer([]string) (pipeline.Recognizer, error) {
	return nil, errTesseractNotBuilt
}
