package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digest computation.
// Version suffix enables future algorithm migration.
const (
	DomainDispatch = "stampede/dispatch/v1"
	DomainFrame    = "stampede/frame/v1"
	DomainRun      = "stampede/run/v1"
)

// digestWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func digestWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DispatchDigest computes the content digest of one dispatch.
// Stable across runs given identical dispatch fields.
func DispatchDigest(d Dispatch) (string, error) {
	canonical, err := MarshalCanonical(d.Object())
	if err != nil {
		return "", fmt.Errorf("DispatchDigest: %w", err)
	}
	return digestWithDomain(DomainDispatch, canonical), nil
}

// FrameDigest computes the content digest of one frame, dispatches included.
// Replay compares recorded frame digests against re-executed ones; the first
// mismatch names the frame where behavior diverged.
func FrameDigest(f Frame) (string, error) {
	canonical, err := MarshalCanonical(f.Object())
	if err != nil {
		return "", fmt.Errorf("FrameDigest: %w", err)
	}
	return digestWithDomain(DomainFrame, canonical), nil
}

// RunDigest folds per-frame digests into one digest for the whole run.
// The input order is frame order; the digest depends on it.
func RunDigest(frameDigests []string) string {
	arr := make(Array, len(frameDigests))
	for i, d := range frameDigests {
		arr[i] = String(d)
	}
	// String elements cannot fail canonical marshaling.
	canonical, _ := MarshalCanonical(arr)
	return digestWithDomain(DomainRun, canonical)
}

// MustFrameDigest is like FrameDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFrameDigest(f Frame) string {
	d, err := FrameDigest(f)
	if err != nil {
		panic(err)
	}
	return d
}
