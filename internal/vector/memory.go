package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// MemoryIndex is a thread-safe in-memory store of fixed-dimension dense vectors keyed by ID.
// Adding an existing ID replaces its vector.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	pos        map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector store with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
		pos:        make(map[string]int),
	}, nil
}

// Dimensions returns the vector dimension of the index.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Add stores vectors under the given IDs, replacing any existing entries.
func (m *MemoryIndex) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for i := range vectors {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		if p, ok := m.pos[id]; ok {
			m.vectors[p] = vec
			continue
		}
		m.pos[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Get returns a copy of the vector stored under id.
func (m *MemoryIndex) Get(id string) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pos[id]
	if !ok {
		return nil, false
	}
	out := make([]float32, m.dimensions)
	copy(out, m.vectors[p])
	return out, true
}

// Remove deletes vectors by ID. Unknown IDs are ignored.
func (m *MemoryIndex) Remove(ids []string) {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newIDs := make([]string, 0, len(m.ids))
	newVectors := make([][]float32, 0, len(m.vectors))
	for i, id := range m.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, m.vectors[i])
		}
	}
	m.ids = newIDs
	m.vectors = newVectors
	m.reindex()
}

// Retain keeps only the given IDs and drops everything else. Returns the number removed.
func (m *MemoryIndex) Retain(keep map[string]struct{}) int {
	m.mu.RLock()
	var drop []string
	for _, id := range m.ids {
		if _, ok := keep[id]; !ok {
			drop = append(drop, id)
		}
	}
	m.mu.RUnlock()
	if len(drop) > 0 {
		m.Remove(drop)
	}
	return len(drop)
}

func (m *MemoryIndex) reindex() {
	m.pos = make(map[string]int, len(m.ids))
	for i, id := range m.ids {
		m.pos[id] = i
	}
}

// cacheMagic and cacheVersion prefix every saved file so stale or foreign files are rejected.
var cacheMagic = [4]byte{'L', 'C', 'V', 'C'}

const cacheVersion uint16 = 1

type fileHeader struct {
	Magic      [4]byte
	Version    uint16
	Dimensions uint32
	Count      uint32
}

// Save writes the index to path atomically: a temp file in the same directory is renamed
// over path. Layout (little endian): header, then per vector idLen uint16, id, dims float32.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := m.writeTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func (m *MemoryIndex) writeTo(f io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w := bufio.NewWriter(f)
	hdr := fileHeader{Magic: cacheMagic, Version: cacheVersion, Dimensions: uint32(m.dimensions), Count: uint32(len(m.ids))}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, id := range m.ids {
		if len(id) > math.MaxUint16 {
			return fmt.Errorf("id too long: %d bytes", len(id))
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(id))); err != nil {
			return fmt.Errorf("write id length: %w", err)
		}
		if _, err := w.WriteString(id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, m.vectors[i]); err != nil {
			return fmt.Errorf("write vector %s: %w", id, err)
		}
	}
	return w.Flush()
}

// Load replaces the contents with the file at path. A missing file leaves the index empty
// and is not an error; a different magic, version or dimension is.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	switch {
	case hdr.Magic != cacheMagic:
		return fmt.Errorf("%s is not an embedding cache", path)
	case hdr.Version != cacheVersion:
		return fmt.Errorf("unsupported cache version %d", hdr.Version)
	case int(hdr.Dimensions) != m.dimensions:
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", hdr.Dimensions, m.dimensions)
	}

	ids := make([]string, 0, hdr.Count)
	vectors := make([][]float32, 0, hdr.Count)
	for i := uint32(0); i < hdr.Count; i++ {
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return fmt.Errorf("read id length: %w", err)
		}
		id := make([]byte, n)
		if _, err := io.ReadFull(r, id); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		vec := make([]float32, m.dimensions)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		ids = append(ids, string(id))
		vectors = append(vectors, vec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = ids
	m.vectors = vectors
	m.reindex()
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
