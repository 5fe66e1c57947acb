package renderer

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed shaders/*.vert shaders/*.frag
var builtinShaders embed.FS

// ShaderLibrary resolves shader file names against user directories first
// and the built-in shaders last.
type ShaderLibrary struct {
	sources []fs.FS
}

// NewShaderLibrary searches dirs in order before the built-in shaders.
func NewShaderLibrary(dirs ...fs.FS) *ShaderLibrary {
	builtin, _ := fs.Sub(builtinShaders, "shaders")
	return &ShaderLibrary{sources: append(append([]fs.FS{}, dirs...), builtin)}
}

// Exists reports whether name can be read from any source.
func (l *ShaderLibrary) Exists(name string) bool {
	for _, src := range l.sources {
		if _, err := fs.Stat(src, name); err == nil {
			return true
		}
	}
	return false
}

// Read returns the contents of the first file named name.
func (l *ShaderLibrary) Read(name string) (string, error) {
	for _, src := range l.sources {
		data, err := fs.ReadFile(src, name)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read shader %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("shader %s: %w", name, fs.ErrNotExist)
}

// Load reads files and keys them by stage, taken from each file's extension.
// params are inserted as #define lines after the #version directive.
func (l *ShaderLibrary) Load(files []string, params map[string]string) (map[ShaderStage]string, error) {
	sources := make(map[ShaderStage]string, len(files))
	for _, f := range files {
		stage := ShaderStage(strings.TrimPrefix(path.Ext(f), "."))
		if !validStage(stage) {
			return nil, fmt.Errorf("shader %s: unknown stage %q", f, stage)
		}
		src, err := l.Read(f)
		if err != nil {
			return nil, err
		}
		sources[stage] = injectDefines(src, params)
	}
	return sources, nil
}

// ClassShaders returns the files named <class>.<stage> that exist, in stage order.
func (l *ShaderLibrary) ClassShaders(class string) []string {
	var files []string
	for _, stage := range ShaderStages {
		name := class + "." + string(stage)
		if l.Exists(name) {
			files = append(files, name)
		}
	}
	return files
}

func validStage(s ShaderStage) bool {
	for _, stage := range ShaderStages {
		if s == stage {
			return true
		}
	}
	return false
}

func injectDefines(src string, params map[string]string) string {
	if len(params) == 0 {
		return src
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var defines strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&defines, "#define %s %s\n", k, params[k])
	}

	lines := strings.SplitAfter(src, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#version") {
			if !strings.HasSuffix(line, "\n") {
				lines[i] = line + "\n"
			}
			return strings.Join(lines[:i+1], "") + defines.String() + strings.Join(lines[i+1:], "")
		}
	}
	return defines.String() + src
}

// programKey identifies a program built from files and params.
func programKey(files []string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		keys = append(keys, k+"="+v)
	}
	sort.Strings(keys)
	return strings.Join(files, ",") + "|" + strings.Join(keys, ",")
}
