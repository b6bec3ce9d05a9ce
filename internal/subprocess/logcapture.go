package subprocess

import (
	"bufio"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// drainLines reads newline-delimited output from r, truncates each line at
// maxLen runes at a UTF-8 rune boundary, and logs it through emit. It
// returns once r is exhausted (the pipe closed on process exit) or ctx-like
// cancellation is signaled by closing r from the caller side.
func drainLines(r io.Reader, maxLen uint64, emit func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		emit(truncateLine(scanner.Text(), maxLen))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}

// truncateLine cuts s to at most n runes, appending a rune-count suffix so
// the drop is visible in the log rather than silently swallowed.
func truncateLine(s string, n uint64) string {
	if n == 0 || uint64(utf8.RuneCountInString(s)) <= n {
		return s
	}
	runes := []rune(s)
	kept := runes[:n]
	return fmt.Sprintf("%s... (truncated %d chars)", string(kept), uint64(len(runes))-n)
}

func logStdout(log *logrus.Entry, info bool, line string) {
	if info {
		log.Info(line)
	} else {
		log.Debug(line)
	}
}

func logStderr(log *logrus.Entry, warn bool, line string) {
	if warn {
		log.Warn(line)
	} else {
		log.Debug(line)
	}
}
