package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/kumou/internal/analysis"
	"github.com/example/kumou/internal/text"
)

// readInputText returns the text given as arguments, or stdin when there
// are none.
func readInputText(args []string, stdin io.Reader) (string, error) {
	if joined := strings.TrimSpace(strings.Join(args, " ")); joined != "" {
		return joined, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	input := strings.TrimSpace(string(b))
	if input == "" {
		return "", fmt.Errorf("either pass text as arguments or pipe it on stdin")
	}
	return input, nil
}

// analyzeInput analyzes input as one sentence, or sentence by sentence when
// split is set.
func analyzeInput(an *analysis.Analyzer, input string, split bool) ([]analysis.Sentence, error) {
	parts := []string{input}
	if split {
		parts = text.Sentences(input)
	}

	out := make([]analysis.Sentence, 0, len(parts))
	for _, p := range parts {
		s, err := an.Analyze(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
