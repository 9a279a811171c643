package validation

import (
	"os"
	"strconv"
	"strings"
)

func MaxQuestionLength() int {
	maxStr := os.Getenv("MAX_QUESTION_LENGTH")
	if maxStr == "" {
		return 2000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 2000
	}
	return max
}

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

// MaxImagesPerMessage bounds how many attachments one message may carry.
func MaxImagesPerMessage() int {
	maxStr := os.Getenv("MAX_IMAGES_PER_MESSAGE")
	if maxStr == "" {
		return 5
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 5
	}
	return max
}

func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
