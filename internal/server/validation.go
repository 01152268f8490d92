package server

import (
	"fmt"
	"strings"
)

const (
	maxNameLength   = 20
	maxPromptLength = 140
	maxDrawingBytes = 250 * 1024
)

func validateName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(trimmed) > maxNameLength {
		return "", fmt.Errorf("%w: name must be %d characters or fewer", ErrInvalid, maxNameLength)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%w: name contains unsupported characters", ErrInvalid)
	}
	return trimmed, nil
}

func validatePrompt(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrInvalid)
	}
	if len(trimmed) > maxPromptLength {
		return "", fmt.Errorf("%w: prompt must be %d characters or fewer", ErrInvalid, maxPromptLength)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%w: prompt contains unsupported characters", ErrInvalid)
	}
	return trimmed, nil
}

func validateDrawing(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("%w: drawing is required", ErrInvalid)
	}
	if len(trimmed) > maxDrawingBytes {
		return "", fmt.Errorf("%w: drawing exceeds %d bytes", ErrInvalid, maxDrawingBytes)
	}
	return trimmed, nil
}

func validateTimerMinutes(minutes, max int) error {
	if minutes < 0 {
		return fmt.Errorf("%w: timer minutes must not be negative", ErrInvalid)
	}
	if minutes > max {
		return fmt.Errorf("%w: timer must be %d minutes or fewer", ErrInvalid, max)
	}
	return nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '"', '.', ',', '!', '?', ':', ';', '&', '(', ')', '/':
			continue
		default:
			return false
		}
	}
	return true
}
