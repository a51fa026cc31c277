// Package uploads validates attachment batches before anything is sent
// to the platform, so the user gets one consolidated error instead of a
// round trip per bad file.
package uploads

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"chat-bridge/internal/models"
)

const (
	// MaxFileSize is the per-file size ceiling.
	MaxFileSize = 10 << 20
	// MaxBatchSize is the number of files allowed in one message.
	MaxBatchSize = 5

	// shownProblems caps how many per-file problems a batch error spells
	// out before collapsing the rest into a count.
	shownProblems = 3
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var documentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".csv":  true,
	".txt":  true,
	".zip":  true,
}

// ErrTooManyFiles rejects batches over MaxBatchSize before any per-file
// check runs.
var ErrTooManyFiles = fmt.Errorf("too many files: at most %d per message", MaxBatchSize)

// Kind classifies a file name as "image" or "document" by extension.
// The boolean reports whether the extension is allowed at all.
func Kind(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExtensions[ext]:
		return "image", true
	case documentExtensions[ext]:
		return "document", true
	default:
		return "", false
	}
}

// Validate checks a batch of files against the count, size and extension
// limits. All per-file problems are collected into a single error; only
// the first few are spelled out.
func Validate(files []models.FileUpload) error {
	if len(files) > MaxBatchSize {
		return ErrTooManyFiles
	}

	var problems []string
	for _, f := range files {
		if f.Name == "" {
			problems = append(problems, "a file has no name")
			continue
		}
		if _, ok := Kind(f.Name); !ok {
			problems = append(problems, fmt.Sprintf("%s: unsupported file type", f.Name))
			continue
		}
		if len(f.Content) == 0 {
			problems = append(problems, fmt.Sprintf("%s: file is empty", f.Name))
			continue
		}
		if len(f.Content) > MaxFileSize {
			problems = append(problems, fmt.Sprintf("%s: exceeds the %dMB limit", f.Name, MaxFileSize>>20))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	shown := problems
	if len(shown) > shownProblems {
		shown = shown[:shownProblems]
		shown = append(shown, fmt.Sprintf("and %d more", len(problems)-shownProblems))
	}
	return errors.New(strings.Join(shown, "; "))
}
