package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// parseAssignments разбирает пары key=value из флагов --var/--input.
// Значения остаются строками: приведение типов делает сервер.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

// loadValues читает JSON объект из файла и накладывает поверх пары key=value.
func loadValues(file string, pairs []string) (map[string]any, error) {
	values := make(map[string]any)

	if file != "" {
		data, err := readInput(file)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("%s: expected a JSON object: %w", file, err)
		}
	}

	assigned, err := parseAssignments(pairs)
	if err != nil {
		return nil, err
	}
	for k, v := range assigned {
		values[k] = v
	}
	return values, nil
}

// readInput читает файл; "-" означает stdin.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
