package strategy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/filelock"
	"github.com/harrison/agentcore/internal/fileutil"
)

// FileStrategy implements FILE_READ, FILE_WRITE, FILE_COPY, FILE_DELETE and
// DIRECTORY_SCAN over the local filesystem.
type FileStrategy struct {
	Narrator Narrator
}

// NewFileStrategy constructs a FileStrategy. narrator may be nil.
func NewFileStrategy(narrator Narrator) *FileStrategy {
	return &FileStrategy{Narrator: narrator}
}

func (s *FileStrategy) narrate(line string) {
	if s.Narrator != nil {
		s.Narrator.Narrate(line)
	}
}

// ExecuteRead implements FILE_READ.
func (s *FileStrategy) ExecuteRead(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		path, err := requireParam(task, "file_path")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		s.narrate(fmt.Sprintf("agent reading file: %s", path))
		data, err := os.ReadFile(path)
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		return agentcore.TaskResult{Success: true, Output: string(data)}, nil
	})
}

// ExecuteWrite implements FILE_WRITE. It auto-creates parent directories
// and honors an "append" boolean parameter. Non-append writes go through
// filelock.LockAndWrite so concurrent FILE_WRITE tasks (or a human editor)
// touching the same path never observe a partial write; append mode can't
// use the lock-then-atomic-rename pattern (it must extend the existing
// file in place) so it falls back to a plain append-mode OpenFile.
func (s *FileStrategy) ExecuteWrite(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		path, err := requireParam(task, "file_path")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		content := optionalParam(task, "content", "")
		append_ := optionalBool(task, "append", false)

		s.narrate(fmt.Sprintf("agent writing file (append=%v): %s", append_, path))

		_, statErr := os.Stat(path)
		created := statErr != nil

		if append_ {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
			}
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
			if err != nil {
				return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
			}
			defer f.Close()
			if _, err := f.WriteString(content); err != nil {
				return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
			}
		} else {
			if err := filelock.LockAndWrite(path, []byte(content)); err != nil {
				return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
			}
		}

		result := agentcore.TaskResult{Success: true, Output: fmt.Sprintf("wrote %d bytes to %s", len(content), path)}
		if created {
			result.FilesCreated = []string{path}
		} else {
			result.FilesModified = []string{path}
		}
		return result, nil
	})
}

// ExecuteCopy implements FILE_COPY.
func (s *FileStrategy) ExecuteCopy(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		src, err := requireParam(task, "source_path")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		dst, err := requireParam(task, "destination_path")
		if err != nil {
			return agentcore.TaskResult{}, err
		}

		s.narrate(fmt.Sprintf("agent copying file: %s -> %s", src, dst))

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}

		in, err := os.Open(src)
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		defer in.Close()

		out, err := os.Create(dst)
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		defer out.Close()

		if _, err := io.Copy(out, in); err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}

		return agentcore.TaskResult{Success: true, Output: fmt.Sprintf("copied %s to %s", src, dst), FilesCreated: []string{dst}}, nil
	})
}

// ExecuteDelete implements FILE_DELETE.
func (s *FileStrategy) ExecuteDelete(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		path, err := requireParam(task, "file_path")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		s.narrate(fmt.Sprintf("agent deleting file: %s", path))
		if err := os.Remove(path); err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		return agentcore.TaskResult{Success: true, Output: fmt.Sprintf("deleted %s", path)}, nil
	})
}

// ExecuteDirectoryScan implements DIRECTORY_SCAN, returning an ordered
// sequence of path strings, recursive if the "recursive" parameter is true.
// An optional "pattern" parameter filters results by regex, and
// "extensions" restricts by file extension, both passed straight through
// to fileutil.ScanDirectory.
func (s *FileStrategy) ExecuteDirectoryScan(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		root, err := requireParam(task, "directory_path")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		recursive := optionalBool(task, "recursive", false)
		pattern := optionalParam(task, "pattern", "")
		var extensions []string
		if raw, ok := task.Parameters["extensions"]; ok {
			if list, ok := raw.([]string); ok {
				extensions = list
			} else if list, ok := raw.([]any); ok {
				for _, v := range list {
					if s, ok := v.(string); ok {
						extensions = append(extensions, s)
					}
				}
			}
		}

		s.narrate(fmt.Sprintf("agent scanning directory (recursive=%v): %s", recursive, root))

		result, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{
			Pattern:    pattern,
			Extensions: extensions,
			Recursive:  recursive,
		})
		if err != nil {
			return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
		}
		if len(result.Errors) > 0 {
			s.narrate(fmt.Sprintf("agent directory scan encountered %d error(s) under %s", len(result.Errors), root))
		}

		artifacts := map[string]any{"paths": result.Files}
		return agentcore.TaskResult{Success: true, Output: fmt.Sprintf("found %d entries under %s", len(result.Files), root), Artifacts: artifacts}, nil
	})
}
