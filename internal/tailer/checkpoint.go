package tailer

import (
	"encoding/json"
	"os"
	"sync"
)

// Position is how far a trace file has been consumed.
type Position struct {
	Offset int64 `json:"offset"` // byte offset just past the last complete line
	Line   int   `json:"line"`   // number of complete lines consumed
}

// checkpointData is the on-disk JSON structure for persisted positions.
type checkpointData struct {
	Positions map[string]Position `json:"positions"`
}

// Checkpoint persists trace read positions so following can resume after a
// restart.
type Checkpoint struct {
	mu   sync.RWMutex
	path string
	data checkpointData
}

// NewCheckpoint creates or loads a checkpoint file at the given path.
// A missing or unreadable file starts an empty checkpoint.
func NewCheckpoint(path string) (*Checkpoint, error) {
	c := &Checkpoint{
		path: path,
		data: checkpointData{Positions: make(map[string]Position)},
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(raw, &c.data)
	}
	if c.data.Positions == nil {
		c.data.Positions = make(map[string]Position)
	}

	return c, nil
}

// Get returns the saved position for a trace file.
func (c *Checkpoint) Get(path string) (Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data.Positions[path]
	return v, ok
}

// Set records the current position for a trace file.
func (c *Checkpoint) Set(path string, pos Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Positions[path] = pos
}

// Delete forgets a trace file, e.g. after it was replaced.
func (c *Checkpoint) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data.Positions, path)
}

// Save writes the checkpoint data to disk atomically.
func (c *Checkpoint) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return err
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
