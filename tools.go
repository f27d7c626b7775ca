package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/tidwall/gjson"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
	"github.com/yargevad/filepathx"
)

var errOutsideWorkspace = errors.New("path is outside the working directory")

// Tool is a langchaingo tool that also describes its JSON parameters.
type Tool interface {
	tools.Tool
	ParameterSchema() map[string]any
}

// confinePath resolves path against root and rejects anything that ends up
// outside it, symlinks included.
func confinePath(root, path string) (string, error) {
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	abs := filepath.Clean(path)

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = filepath.Clean(root)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// not created yet: resolve the parent instead
		if parent, perr := filepath.EvalSymlinks(filepath.Dir(abs)); perr == nil {
			real = filepath.Join(parent, filepath.Base(abs))
		} else {
			real = abs
		}
	}

	rel, err := filepath.Rel(realRoot, real)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errOutsideWorkspace, path)
	}
	return abs, nil
}

func schemaObject(props map[string]any, required ...string) map[string]any {
	m := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}

func schemaString(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

// ReadFileTool reads a file, optionally a line window of it
type ReadFileTool struct{ root string }

type readFileInput struct {
	Path   string `json:"path"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (t ReadFileTool) Name() string { return "read_file" }

func (t ReadFileTool) Description() string {
	return "Reads a file and returns its content. Optionally 'offset' (1-based first line) and 'limit' (number of lines)."
}

func (t ReadFileTool) ParameterSchema() map[string]any {
	return schemaObject(map[string]any{
		"path":   schemaString("Path to the file, relative to the working directory"),
		"offset": map[string]any{"type": "integer", "description": "First line to read, 1-based"},
		"limit":  map[string]any{"type": "integer", "description": "Number of lines to read"},
	}, "path")
}

func (t ReadFileTool) Call(ctx context.Context, input string) (string, error) {
	var params readFileInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		params.Path = input
	}
	path, err := confinePath(t.root, params.Path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if params.Offset <= 0 && params.Limit <= 0 {
		return string(content), nil
	}

	lines := strings.Split(string(content), "\n")
	start := max(params.Offset-1, 0)
	if start >= len(lines) {
		return "", nil
	}
	end := len(lines)
	if params.Limit > 0 {
		end = min(start+params.Limit, len(lines))
	}
	return strings.Join(lines[start:end], "\n"), nil
}

// WriteFileTool creates or overwrites a file and reports the line delta
type WriteFileTool struct{ root string }

type writeFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t WriteFileTool) Name() string { return "write_file" }

func (t WriteFileTool) Description() string {
	return "Writes content to a file, creating or overwriting it. The path must be within the working directory."
}

func (t WriteFileTool) ParameterSchema() map[string]any {
	return schemaObject(map[string]any{
		"path":    schemaString("Target file path"),
		"content": schemaString("File contents to write"),
	}, "path", "content")
}

func (t WriteFileTool) Call(ctx context.Context, input string) (string, error) {
	var params writeFileInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("invalid input: %w. Expected a JSON object with 'path' and 'content'", err)
	}
	path, err := confinePath(t.root, params.Path)
	if err != nil {
		return "", err
	}

	old, err := os.ReadFile(path)
	created := errors.Is(err, os.ErrNotExist)
	if err != nil && !created {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(params.Content), 0o644); err != nil {
		return "", err
	}

	added, removed := lineDelta(string(old), params.Content)
	verb := "Updated"
	if created {
		verb = "Created"
	}
	return fmt.Sprintf("%s %s (+%d -%d lines)", verb, params.Path, added, removed), nil
}

// lineDelta counts inserted and deleted lines between two texts.
func lineDelta(before, after string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if !strings.HasSuffix(d.Text, "\n") && d.Text != "" {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

// ListDirectoryTool lists a directory, hiding what .gitignore excludes
type ListDirectoryTool struct{ root string }

type listDirectoryInput struct {
	Path string `json:"path"`
}

func (t ListDirectoryTool) Name() string { return "list_directory" }

func (t ListDirectoryTool) Description() string {
	return "Lists the entries of a directory. Directories end with '/'. Entries ignored by .gitignore are skipped."
}

func (t ListDirectoryTool) ParameterSchema() map[string]any {
	return schemaObject(map[string]any{
		"path": schemaString("Directory path (defaults to '.')"),
	})
}

func (t ListDirectoryTool) Call(ctx context.Context, input string) (string, error) {
	var params listDirectoryInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		params.Path = input
	}
	if strings.TrimSpace(params.Path) == "" {
		params.Path = "."
	}
	dir, err := confinePath(t.root, params.Path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	gi, err := ignore.CompileIgnoreFile(filepath.Join(t.root, ".gitignore"))
	if err != nil {
		gi = nil
	}

	var names []string
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if gi != nil {
			rel, _ := filepath.Rel(t.root, full)
			if e.IsDir() {
				rel += "/"
			}
			if gi.MatchesPath(rel) {
				continue
			}
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

// ReadManyFilesTool concatenates every file matched by a set of globs
type ReadManyFilesTool struct{ root string }

type readManyFilesInput struct {
	Paths []string `json:"paths"`
}

func (t ReadManyFilesTool) Name() string { return "read_many_files" }

func (t ReadManyFilesTool) Description() string {
	return "Reads multiple files matched by glob patterns (** supported). Each file is preceded by a '--- path ---' header."
}

func (t ReadManyFilesTool) ParameterSchema() map[string]any {
	return schemaObject(map[string]any{
		"paths": map[string]any{
			"type":        "array",
			"description": "File paths or glob patterns",
			"items":       schemaString("A file path or glob pattern"),
		},
	}, "paths")
}

func (t ReadManyFilesTool) Call(ctx context.Context, input string) (string, error) {
	var params readManyFilesInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("invalid input: %w. Expected a JSON object with a 'paths' array", err)
	}

	seen := make(map[string]bool)
	var b strings.Builder
	for _, pattern := range params.Paths {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(t.root, pattern)
		}
		matches, err := filepathx.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			path, err := confinePath(t.root, m)
			if err != nil {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			content, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			rel, _ := filepath.Rel(t.root, path)
			fmt.Fprintf(&b, "--- %s ---\n", rel)
			b.Write(content)
			b.WriteString("\n")
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no files matched")
	}
	return b.String(), nil
}

// GetTimeTool returns the local time
type GetTimeTool struct{ now func() time.Time }

func (t GetTimeTool) Name() string { return "get_time" }

func (t GetTimeTool) Description() string {
	return "Returns the current local date and time."
}

func (t GetTimeTool) ParameterSchema() map[string]any {
	return schemaObject(map[string]any{})
}

func (t GetTimeTool) Call(ctx context.Context, input string) (string, error) {
	now := time.Now
	if t.now != nil {
		now = t.now
	}
	return now().Format("2006-01-02 15:04:05 Monday MST"), nil
}

func availableTools(root string) []Tool {
	return []Tool{
		ReadFileTool{root: root},
		WriteFileTool{root: root},
		ListDirectoryTool{root: root},
		ReadManyFilesTool{root: root},
		GetTimeTool{},
	}
}

// buildLLMTools returns the function definitions sent to the model and a
// catalog of the tools by name.
func buildLLMTools(toolset []Tool) ([]llms.Tool, map[string]Tool) {
	defs := make([]llms.Tool, 0, len(toolset))
	catalog := make(map[string]Tool, len(toolset))
	for _, t := range toolset {
		catalog[t.Name()] = t
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.ParameterSchema(),
			},
		})
	}
	return defs, catalog
}

const (
	toolArgLimit = 20
	toolArgCount = 2
)

// toolArgsSummary renders the first values of a JSON argument object for
// the tool panel header, e.g. `main.go, 10`.
func toolArgsSummary(argsJSON string) string {
	argsJSON = strings.TrimSpace(argsJSON)
	if argsJSON == "" {
		return ""
	}
	if !gjson.Valid(argsJSON) {
		return truncateArg(argsJSON)
	}
	parsed := gjson.Parse(argsJSON)
	if !parsed.IsObject() && !parsed.IsArray() {
		return truncateArg(parsed.String())
	}
	var parts []string
	parsed.ForEach(func(_, value gjson.Result) bool {
		v := value.String()
		if value.IsArray() {
			var items []string
			for _, item := range value.Array() {
				items = append(items, item.String())
			}
			v = strings.Join(items, " ")
		}
		parts = append(parts, truncateArg(v))
		return len(parts) < toolArgCount
	})
	return strings.Join(parts, ", ")
}

func truncateArg(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= toolArgLimit {
		return s
	}
	return string(r[:toolArgLimit-3]) + "..."
}
