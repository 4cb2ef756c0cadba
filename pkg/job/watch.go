// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch watches the job file for changes and invokes onChange with each
// successfully reloaded definition. Load errors during a watch cycle are
// logged and skipped — the previous definition (and any running deployment)
// stays in effect rather than tearing down on a transient bad edit.
// Blocks until ctx is cancelled.
func (l *Loader) Watch(ctx context.Context, onChange func(*JobDefinition)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.path); err != nil {
		return fmt.Errorf("watch job file: %w", err)
	}

	slog.Info("watching job file for changes", "path", l.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			def, _, err := l.Load(ctx)
			if err != nil {
				slog.Error("job file reload failed, keeping previous definition", "error", err)
				continue
			}
			slog.Info("job file reloaded", "job", def.Name)
			onChange(def)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("job file watcher error", "error", werr)
		}
	}
}
