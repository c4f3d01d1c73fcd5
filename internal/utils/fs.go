package utils

import (
	"fmt"
	"os"
	"strings"
	"syscall"
)

// CreateIfNotExists creates the directory path unless it is already
// there.
func CreateIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModePerm)
	}

	return nil
}

// Sync flushes pending writes to disk.
func Sync() {
	syscall.Sync()
}

// WriteFileLines replaces the file content with the given lines, one
// per line, ending with a newline.
func WriteFileLines(path string, lines ...string) error {
	content := strings.Join(lines, "\n")
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// AppendLine appends a single line to the file, creating it if needed.
// A trailing newline is added when the line does not carry one.
func AppendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(line, "\n") {
		line = fmt.Sprintf("%s\n", line)
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
