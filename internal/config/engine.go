package config

import (
	"fmt"
	"strings"
)

const (
	EnginePaced  = "paced"
	EnginePocket = "pocket-tts"
)

func NormalizeEngine(raw string) (string, error) {
	engine := strings.ToLower(strings.TrimSpace(raw))
	if engine == "" {
		engine = EnginePaced
	}
	switch engine {
	case EnginePaced, EnginePocket:
		return engine, nil
	case "pocket":
		return EnginePocket, nil
	default:
		return "", fmt.Errorf("invalid engine %q (expected %s|%s|pocket)", raw, EnginePaced, EnginePocket)
	}
}
