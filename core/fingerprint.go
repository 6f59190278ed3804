package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is an immutable provenance tag binding a vector to the model,
// dimension, content hash, and generation time that produced it. It detects
// staleness and drift; it never identifies content uniquely.
//
// Wire format: {model}:{dimension}:{hash8}:{RFC3339 UTC timestamp}.
type Fingerprint struct {
	Model       string
	Dimension   int
	Hash8       string
	GeneratedAt time.Time
}

// NewFingerprint computes the fingerprint of a vector produced by the given
// model. hash8 is the first 8 hex characters of a BLAKE2b digest of the raw
// little-endian vector bytes, so the same vector always hashes identically.
func NewFingerprint(model string, vector []float32) Fingerprint {
	return Fingerprint{
		Model:       shortModelName(model),
		Dimension:   len(vector),
		Hash8:       VectorHash8(vector),
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// VectorHash8 returns the 8-hex-character content hash of a vector.
func VectorHash8(vector []float32) string {
	h, _ := blake2b.New(4, nil) // 4 bytes = 8 hex chars
	buf := make([]byte, 4)
	for _, v := range vector {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// String renders the fingerprint in wire format.
func (f Fingerprint) String() string {
	return f.Model + ":" + strconv.Itoa(f.Dimension) + ":" + f.Hash8 + ":" +
		f.GeneratedAt.UTC().Format(time.RFC3339)
}

// ParseFingerprint parses a wire-format fingerprint. The timestamp segment
// may itself contain colons, so everything after the third separator is
// treated as the timestamp.
func ParseFingerprint(s string) (Fingerprint, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 4 {
		return Fingerprint{}, fmt.Errorf("%w: %q", ErrInvalidFingerprint, s)
	}

	dim, err := strconv.Atoi(parts[1])
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: bad dimension in %q", ErrInvalidFingerprint, s)
	}

	ts, err := time.Parse(time.RFC3339, parts[3])
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: bad timestamp in %q", ErrInvalidFingerprint, s)
	}

	return Fingerprint{
		Model:       parts[0],
		Dimension:   dim,
		Hash8:       parts[2],
		GeneratedAt: ts,
	}, nil
}

// FingerprintsMatch reports whether two fingerprints describe the same vector
// content. When ignoreTimestamp is true only model, dimension, and hash are
// compared, so regenerating an identical vector still matches.
func FingerprintsMatch(a, b string, ignoreTimestamp bool) (bool, error) {
	fa, err := ParseFingerprint(a)
	if err != nil {
		return false, err
	}
	fb, err := ParseFingerprint(b)
	if err != nil {
		return false, err
	}

	if ignoreTimestamp {
		return fa.Model == fb.Model && fa.Dimension == fb.Dimension && fa.Hash8 == fb.Hash8, nil
	}
	return a == b, nil
}

// shortModelName trims provider path segments from a model identifier so
// fingerprints stay compact ("org/all-MiniLM-L6-v2" -> "all-MiniLM-L6-v2").
func shortModelName(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	return model
}
