package inference

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

// DefaultTranslateInstructions are the system instructions used when no
// instructions file is configured.
//
//go:embed prompts/translate.txt
var DefaultTranslateInstructions string

// LoadInstructions reads translation instructions from a file.
func LoadInstructions(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("inference: read instructions: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("inference: instructions file %s is empty", path)
	}
	return text, nil
}
