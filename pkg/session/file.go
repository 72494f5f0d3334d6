package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/history"
	"github.com/matzehuels/flowcraft/pkg/nodetype"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// fileExt is the extension of workspace files.
const fileExt = ".flow"

// formatVersion is bumped whenever the record layout changes.
const formatVersion = 1

// FileStore is a file-based workspace store for CLI applications.
// Each workspace is one msgpack document compressed with zstd.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a new file-based workspace store.
// If baseDir is empty, defaults to ~/.config/flowcraft/workspaces/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "flowcraft", "workspaces")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the file that holds workspace id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.baseDir, id+fileExt)
}

// Dir returns the base directory for workspace files.
func (s *FileStore) Dir() string { return s.baseDir }

func (s *FileStore) Load(ctx context.Context, id string) (*State, error) {
	if err := ferrors.ValidateWorkspaceName(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read workspace file: %w", err)
	}
	st, err := decodeState(data)
	if err != nil {
		return nil, fmt.Errorf("parse workspace %s: %w", id, err)
	}
	return st, nil
}

func (s *FileStore) Save(ctx context.Context, st *State) error {
	if err := ferrors.ValidateWorkspaceName(st.ID); err != nil {
		return err
	}
	data, err := encodeState(st)
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, "."+st.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write workspace file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write workspace file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write workspace file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(st.ID)); err != nil {
		return fmt.Errorf("write workspace file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ferrors.ValidateWorkspaceName(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove workspace file: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read workspace dir: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != fileExt || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	slices.Sort(ids)
	return ids, nil
}

var _ Store = (*FileStore)(nil)

// =============================================================================
// Encoding
// =============================================================================

// Node data is a sealed interface, so the file layout uses plain records.
// Data travels as its JSON open form, which is exactly what export and
// import use, so a saved workspace reloads the same values an import would.

type stateRecord struct {
	Version   int              `msgpack:"v"`
	ID        string           `msgpack:"id"`
	CreatedAt time.Time        `msgpack:"created"`
	UpdatedAt time.Time        `msgpack:"updated"`
	Graph     snapshotRecord   `msgpack:"graph"`
	Past      []snapshotRecord `msgpack:"past"`
	Current   snapshotRecord   `msgpack:"current"`
	Future    []snapshotRecord `msgpack:"future"`
}

type snapshotRecord struct {
	Nodes []nodeRecord    `msgpack:"nodes"`
	Edges []workflow.Edge `msgpack:"edges"`
}

type nodeRecord struct {
	ID       string            `msgpack:"id"`
	Type     string            `msgpack:"type"`
	Position workflow.Position `msgpack:"pos"`
	Data     []byte            `msgpack:"data"`
	Selected bool              `msgpack:"sel,omitempty"`
}

var (
	zenc, _ = zstd.NewWriter(nil)
	zdec, _ = zstd.NewReader(nil)
)

func encodeState(st *State) ([]byte, error) {
	rec := stateRecord{
		Version:   formatVersion,
		ID:        st.ID,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
	var err error
	if rec.Graph, err = toRecord(st.Graph); err != nil {
		return nil, err
	}
	if rec.Current, err = toRecord(st.History.Current); err != nil {
		return nil, err
	}
	if rec.Past, err = toRecords(st.History.Past); err != nil {
		return nil, err
	}
	if rec.Future, err = toRecords(st.History.Future); err != nil {
		return nil, err
	}

	raw, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("msgpack: %w", err)
	}
	return zenc.EncodeAll(raw, nil), nil
}

func decodeState(data []byte) (*State, error) {
	raw, err := zdec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	var rec stateRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("msgpack: %w", err)
	}
	if rec.Version != formatVersion {
		return nil, ferrors.New(ferrors.ErrCodeUnsupported, "workspace format version %d", rec.Version)
	}

	st := &State{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if st.Graph, err = fromRecord(rec.Graph); err != nil {
		return nil, err
	}
	var h history.State
	if h.Current, err = fromRecord(rec.Current); err != nil {
		return nil, err
	}
	if h.Past, err = fromRecords(rec.Past); err != nil {
		return nil, err
	}
	if h.Future, err = fromRecords(rec.Future); err != nil {
		return nil, err
	}
	st.History = h
	return st, nil
}

func toRecord(s workflow.Snapshot) (snapshotRecord, error) {
	rec := snapshotRecord{Nodes: make([]nodeRecord, len(s.Nodes)), Edges: s.Edges}
	for i, n := range s.Nodes {
		fields := nodetype.Fields{}
		if n.Data != nil {
			fields = n.Data.Fields()
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return snapshotRecord{}, fmt.Errorf("node %s: %w", n.ID, err)
		}
		rec.Nodes[i] = nodeRecord{
			ID:       n.ID,
			Type:     string(n.Type),
			Position: n.Position,
			Data:     data,
			Selected: n.Selected,
		}
	}
	return rec, nil
}

func fromRecord(rec snapshotRecord) (workflow.Snapshot, error) {
	s := workflow.Snapshot{Nodes: make([]workflow.Node, len(rec.Nodes)), Edges: rec.Edges}
	for i, r := range rec.Nodes {
		var fields nodetype.Fields
		if err := json.Unmarshal(r.Data, &fields); err != nil {
			return workflow.Snapshot{}, fmt.Errorf("node %s: %w", r.ID, err)
		}
		kind := nodetype.Kind(r.Type)
		s.Nodes[i] = workflow.Node{
			ID:       r.ID,
			Type:     kind,
			Position: r.Position,
			Data:     nodetype.Decode(kind, fields),
			Selected: r.Selected,
		}
	}
	return s, nil
}

func toRecords(in []workflow.Snapshot) ([]snapshotRecord, error) {
	out := make([]snapshotRecord, len(in))
	for i, s := range in {
		rec, err := toRecord(s)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

func fromRecords(in []snapshotRecord) ([]workflow.Snapshot, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]workflow.Snapshot, len(in))
	for i, rec := range in {
		s, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
