package vectorize

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// Binary layout of a persisted matrix: magic, version, dim, rows, then
// rows*dim little-endian float32 values.
const (
	matrixMagic   = "SMEM"
	matrixVersion = uint32(1)
)

// EmbeddingMatrix is a dense row-major float32 matrix. Each row is one
// item embedding; row order matches the id list it was built with.
type EmbeddingMatrix struct {
	dim  int
	data []float32
}

// NewEmbeddingMatrix builds a matrix from per-row vectors. Every vector
// must have the same dimension.
func NewEmbeddingMatrix(vectors [][]float32) (*EmbeddingMatrix, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding matrix: %w", domain.ErrEmptyCorpus)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("embedding matrix: zero-dimension row: %w", domain.ErrDimensionMismatch)
	}
	data := make([]float32, 0, len(vectors)*dim)
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("embedding matrix: row %d has dim %d, want %d: %w",
				i, len(vec), dim, domain.ErrDimensionMismatch)
		}
		data = append(data, vec...)
	}
	return &EmbeddingMatrix{dim: dim, data: data}, nil
}

// Dim returns the embedding dimension.
func (m *EmbeddingMatrix) Dim() int { return m.dim }

// Rows returns the number of row vectors.
func (m *EmbeddingMatrix) Rows() int { return len(m.data) / m.dim }

// Row returns the i-th row vector. The slice aliases the matrix storage
// and must not be mutated.
func (m *EmbeddingMatrix) Row(i int) []float32 {
	return m.data[i*m.dim : (i+1)*m.dim]
}

// Save writes the matrix to path atomically (temp file plus rename).
func (m *EmbeddingMatrix) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("save matrix: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := m.write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("save matrix: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save matrix: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save matrix: %w", err)
	}
	return nil
}

func (m *EmbeddingMatrix) write(w io.Writer) error {
	if _, err := w.Write([]byte(matrixMagic)); err != nil {
		return err
	}
	header := []uint32{matrixVersion, uint32(m.dim), uint32(m.Rows())}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	buf := make([]byte, 4)
	for _, v := range m.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// LoadEmbeddingMatrix reads a matrix persisted by Save.
// A missing file maps to domain.ErrArtifactMissing; any malformed content
// maps to domain.ErrArtifactCorrupt.
func LoadEmbeddingMatrix(path string) (*EmbeddingMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load matrix %s: %w", path, domain.ErrArtifactMissing)
		}
		return nil, fmt.Errorf("load matrix %s: %w", path, err)
	}
	defer f.Close()

	magic := make([]byte, len(matrixMagic))
	if _, err := io.ReadFull(f, magic); err != nil || string(magic) != matrixMagic {
		return nil, fmt.Errorf("load matrix %s: bad magic: %w", path, domain.ErrArtifactCorrupt)
	}
	var version, dim, rows uint32
	for _, dst := range []*uint32{&version, &dim, &rows} {
		if err := binary.Read(f, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("load matrix %s: truncated header: %w", path, domain.ErrArtifactCorrupt)
		}
	}
	if version != matrixVersion {
		return nil, fmt.Errorf("load matrix %s: unsupported version %d: %w", path, version, domain.ErrArtifactCorrupt)
	}
	if dim == 0 || rows == 0 {
		return nil, fmt.Errorf("load matrix %s: empty matrix: %w", path, domain.ErrArtifactCorrupt)
	}

	data := make([]float32, int(dim)*int(rows))
	buf := make([]byte, 4)
	for i := range data {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("load matrix %s: truncated data: %w", path, domain.ErrArtifactCorrupt)
		}
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
	}
	// Trailing bytes mean the header lied about the shape.
	if _, err := f.Read(buf[:1]); err != io.EOF {
		return nil, fmt.Errorf("load matrix %s: trailing data: %w", path, domain.ErrArtifactCorrupt)
	}

	return &EmbeddingMatrix{dim: int(dim), data: data}, nil
}
