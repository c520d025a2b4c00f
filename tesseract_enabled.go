//go:build tesseract

package main

import (
	"plate_reader/internal/inference/recognizer/tesseract"
	"plate_reader/internal/pipeline"
)

func newTesseractRecognizer(languages []string) (pipeline.Recognizer, error) {
	return tesseract.NewRecognizer(languages...), nil
}
