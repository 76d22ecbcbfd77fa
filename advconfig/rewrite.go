package advconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/advconfig/document"
)

// rewriteComments converts legacy synthetic comment entries left in the file
// into comment lines. Failures are logged and otherwise ignored.
func (s *Store) rewriteComments() {
	if s.file == "" {
		return
	}
	changed, err := RewriteLegacyComments(s.file)
	if err != nil {
		s.logger.Warn("failed to rewrite config comments", zap.String("path", s.file), zap.Error(err))
		return
	}
	if changed {
		s.logger.Info("rewrote legacy config comments", zap.String("path", s.file))
	}
}

// RewriteLegacyComments rewrites every "<key>_COMMENT_: text" line of the file
// at path into "# text" at the same indentation. Other lines are copied
// unchanged. The result replaces the file atomically through a pending sibling
// file. It reports whether the file contained any synthetic entry.
func RewriteLegacyComments(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read config file: %w", err)
	}
	if !bytes.Contains(data, []byte(document.LegacyCommentMarker)) {
		return false, nil
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithExistingPermissions())
	if err != nil {
		return false, fmt.Errorf("create pending config file: %w", err)
	}
	defer func() {
		_ = pendingFile.Cleanup()
	}()

	w := bufio.NewWriter(pendingFile)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if _, err := w.WriteString(rewriteLine(scanner.Text()) + "\n"); err != nil {
			return false, fmt.Errorf("write config line: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("scan config file: %w", err)
	}
	if err := w.Flush(); err != nil {
		return false, fmt.Errorf("flush config file: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return false, fmt.Errorf("atomically replace config file: %w", err)
	}
	return true, nil
}

func rewriteLine(line string) string {
	key, rest, found := strings.Cut(line, ":")
	if !document.IsLegacyCommentKey(strings.ReplaceAll(key, " ", "")) {
		return line
	}
	trimmed := strings.TrimLeft(line, " ")
	if trimmed == "" {
		return line
	}
	indent := line[:len(line)-len(trimmed)]

	text := ""
	if found {
		text = unquoteScalar(strings.TrimSpace(rest))
	}
	if text == "" {
		return indent + "#"
	}
	return indent + "# " + text
}

func unquoteScalar(s string) string {
	if len(s) < 2 {
		return s
	}
	if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
		var out string
		if err := yaml.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
	}
	return s
}
