// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedisct1/go-minisign"

	"github.com/hdr-community/hdr-installer/internal/github"
)

const (
	// maxManifestBytes bounds a checksum manifest held in memory.
	maxManifestBytes = 1 << 20

	// maxSignatureBytes bounds a minisign signature file.
	maxSignatureBytes = 4 << 10
)

// checksumSet maps an asset file name to its lowercase hex SHA-256.
type checksumSet map[string]string

// fetchChecksums downloads and merges every checksum manifest of a release.
func (p *Pipeline) fetchChecksums(ctx context.Context, token github.Token, manifests []github.Asset) (checksumSet, error) {
	sums := make(checksumSet)
	for _, m := range manifests {
		data, err := p.fetchSmall(ctx, token, m, maxManifestBytes)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", m.Name, err)
		}
		parseChecksums(strings.NewReader(string(data)), m.Name, sums)
	}
	return sums, nil
}

func (p *Pipeline) fetchSmall(ctx context.Context, token github.Token, a github.Asset, limit int64) ([]byte, error) {
	body, _, err := p.source.OpenAsset(ctx, token, a.URL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }() // read-only HTTP response body

	return io.ReadAll(io.LimitReader(body, limit))
}

// parseChecksums reads sha256sum output ("{hash}  {file}" or, in binary
// mode, "{hash} *{file}") into sums. A per-file manifest such as
// "x.zip.sha256" may hold a bare hash, which is filed under "x.zip".
// Lines that do not parse are skipped.
func parseChecksums(r io.Reader, manifestName string, sums checksumSet) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		hash, filename, found := strings.Cut(line, " ")
		filename = strings.TrimPrefix(strings.TrimSpace(filename), "*")
		if !found || filename == "" {
			if !strings.HasSuffix(strings.ToLower(manifestName), ".sha256") {
				continue
			}
			filename = manifestName[:len(manifestName)-len(".sha256")]
		}

		if !isValidHexHash(hash) {
			continue
		}
		sums[filename] = strings.ToLower(hash)
	}
}

// verify checks a staged asset against the release's checksums and, when a
// public key is configured, its minisign signature.
func (p *Pipeline) verify(ctx context.Context, token github.Token, a github.Asset, staged string, sums checksumSet, sigs map[string]github.Asset) error {
	if len(sums) > 0 || p.requireChecksums {
		want, ok := sums[a.Name]
		switch {
		case ok:
			got, err := computeFileHash(staged)
			if err != nil {
				return &VerificationError{Asset: a.Name, Err: err}
			}
			if !strings.EqualFold(got, want) {
				return &VerificationError{Asset: a.Name, Err: &ChecksumError{Filename: a.Name, Expected: want, Got: got}}
			}
		case p.requireChecksums:
			return &VerificationError{Asset: a.Name, Err: ErrChecksumMissing}
		default:
			p.logger.Warn("asset not listed in checksums", "asset", a.Name)
		}
	}

	if p.publicKey == nil {
		return nil
	}
	sigAsset, ok := sigs[a.Name]
	if !ok {
		p.logger.Warn("no signature published; skipping signature check", "asset", a.Name)
		return nil
	}

	raw, err := p.fetchSmall(ctx, token, sigAsset, maxSignatureBytes)
	if err != nil {
		return &VerificationError{Asset: a.Name, Err: fmt.Errorf("fetching signature: %w", err)}
	}
	// The decoder rejects the trailing newline every .minisig file ends with.
	sig, err := minisign.DecodeSignature(strings.TrimRight(string(raw), "\r\n"))
	if err != nil {
		return &VerificationError{Asset: a.Name, Err: fmt.Errorf("%w: %v", ErrSignatureInvalid, err)}
	}
	valid, err := p.publicKey.VerifyFromFile(staged, sig)
	if err != nil {
		return &VerificationError{Asset: a.Name, Err: fmt.Errorf("%w: %v", ErrSignatureInvalid, err)}
	}
	if !valid {
		return &VerificationError{Asset: a.Name, Err: ErrSignatureInvalid}
	}
	return nil
}

// computeFileHash streams the file at path through SHA-256.
func computeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only file handle

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// isValidHexHash checks if s is a valid 64-character hex-encoded SHA256 hash.
func isValidHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
