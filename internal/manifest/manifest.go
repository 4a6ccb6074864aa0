// Package manifest persists a build's module-to-chunk assignment and
// compares two builds to measure how many modules changed chunk.
package manifest

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"chunksplit/cas"
	"chunksplit/chunk"
	"chunksplit/internal/plan"
)

// Manifest format (zstd compressed):
// [4 bytes: header length (big-endian)]
// [header JSON: Header]
// [body: canonical JSON of the assignments map]

const (
	HeaderLengthSize = 4
	MaxHeaderSize    = 10 * 1024 * 1024 // 10MB max header
	FormatVersion    = 1
)

// maxDecodedSize caps the decompressed size Read accepts.
var maxDecodedSize int64 = 256 * 1024 * 1024

var (
	ErrTruncated = errors.New("manifest truncated")
	ErrChecksum  = errors.New("manifest checksum mismatch")
	ErrVersion   = errors.New("unsupported manifest version")
	ErrCount     = errors.New("manifest assignment count mismatch")
	ErrTooLarge  = errors.New("manifest too large")
)

// Header describes a manifest body.
type Header struct {
	Version     int    `json:"version"`
	BuildID     string `json:"buildId"`
	Mode        string `json:"mode"`
	RulesDigest string `json:"rulesDigest"`
	CreatedAt   int64  `json:"createdAt"`
	Count       int    `json:"count"`
	Checksum    []byte `json:"checksum"`
}

// Manifest is one build's chunk assignment.
type Manifest struct {
	BuildID     string
	Mode        chunk.Mode
	RulesDigest string
	CreatedAt   int64
	// Assignments maps module id to chunk name.
	Assignments map[string]string
}

// FromPlan creates a manifest for p with a fresh build id.
func FromPlan(p *plan.Plan, mode chunk.Mode, rulesDigest string) *Manifest {
	return &Manifest{
		BuildID:     uuid.NewString(),
		Mode:        mode,
		RulesDigest: rulesDigest,
		CreatedAt:   cas.NowMs(),
		Assignments: p.Assignments(),
	}
}

// Chunks returns the distinct chunk names, sorted.
func (m *Manifest) Chunks() []string {
	seen := make(map[string]bool)
	for _, name := range m.Assignments {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write encodes m to w.
func Write(w io.Writer, m *Manifest) error {
	assignments := m.Assignments
	if assignments == nil {
		assignments = map[string]string{}
	}
	body, err := cas.CanonicalJSON(assignments)
	if err != nil {
		return fmt.Errorf("encoding assignments: %w", err)
	}

	header := Header{
		Version:     FormatVersion,
		BuildID:     m.BuildID,
		Mode:        string(m.Mode),
		RulesDigest: m.RulesDigest,
		CreatedAt:   m.CreatedAt,
		Count:       len(assignments),
		Checksum:    cas.Blake3Hash(body),
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}

	headerLen := make([]byte, HeaderLengthSize)
	binary.BigEndian.PutUint32(headerLen, uint32(len(headerJSON)))

	for _, part := range [][]byte{headerLen, headerJSON, body} {
		if _, err := encoder.Write(part); err != nil {
			encoder.Close()
			return fmt.Errorf("compressing: %w", err)
		}
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}
	return nil
}

// Read decodes a manifest from r and verifies its checksum.
func Read(r io.Reader) (*Manifest, error) {
	decoder, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(uint64(maxDecodedSize)))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(io.LimitReader(decoder, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	if int64(len(data)) > maxDecodedSize {
		return nil, fmt.Errorf("%w: over %d bytes decompressed", ErrTooLarge, maxDecodedSize)
	}

	if len(data) < HeaderLengthSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	headerLen := binary.BigEndian.Uint32(data[:HeaderLengthSize])
	if headerLen > MaxHeaderSize {
		return nil, fmt.Errorf("header too large: %d bytes", headerLen)
	}
	if int(HeaderLengthSize+headerLen) > len(data) {
		return nil, fmt.Errorf("%w: header length exceeds manifest size", ErrTruncated)
	}

	var header Header
	if err := json.Unmarshal(data[HeaderLengthSize:HeaderLengthSize+headerLen], &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, header.Version)
	}

	body := data[HeaderLengthSize+headerLen:]
	if !bytes.Equal(cas.Blake3Hash(body), header.Checksum) {
		return nil, ErrChecksum
	}

	var assignments map[string]string
	if err := json.Unmarshal(body, &assignments); err != nil {
		return nil, fmt.Errorf("parsing assignments: %w", err)
	}
	if len(assignments) != header.Count {
		return nil, fmt.Errorf("%w: header says %d, body has %d", ErrCount, header.Count, len(assignments))
	}

	return &Manifest{
		BuildID:     header.BuildID,
		Mode:        chunk.Mode(header.Mode),
		RulesDigest: header.RulesDigest,
		CreatedAt:   header.CreatedAt,
		Assignments: assignments,
	}, nil
}

// WriteFile writes m to path.
func WriteFile(path string, m *Manifest) error {
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadFile reads a manifest from path.
func ReadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	return Read(f)
}
