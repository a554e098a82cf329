// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"mime"
	"strings"

	"github.com/hdr-community/hdr-installer/internal/github"
)

type (
	archiveKind int

	// assetPlan splits a release's assets into what gets installed and what
	// only serves to verify it.
	assetPlan struct {
		install    []github.Asset
		checksums  []github.Asset
		signatures map[string]github.Asset // keyed by the signed asset's name
	}
)

const (
	notArchive archiveKind = iota
	zipArchive
	tarArchive
	tarGzArchive
	tarZstArchive
)

func (k archiveKind) String() string {
	switch k {
	case zipArchive:
		return "zip"
	case tarArchive:
		return "tar"
	case tarGzArchive:
		return "tar.gz"
	case tarZstArchive:
		return "tar.zst"
	default:
		return "file"
	}
}

// planAssets keeps the resolved order of installable assets.
func planAssets(assets []github.Asset) assetPlan {
	plan := assetPlan{signatures: make(map[string]github.Asset)}
	for _, a := range assets {
		switch {
		case strings.HasSuffix(a.Name, ".minisig"):
			plan.signatures[strings.TrimSuffix(a.Name, ".minisig")] = a
		case isChecksumManifest(a.Name):
			plan.checksums = append(plan.checksums, a)
		default:
			plan.install = append(plan.install, a)
		}
	}
	return plan
}

func isChecksumManifest(name string) bool {
	lower := strings.ToLower(name)
	return lower == "checksums.txt" || lower == "sha256sums" || lower == "sha256sums.txt" ||
		strings.HasSuffix(lower, ".sha256")
}

// classify decides how an asset is installed from its declared content type
// alone. Generic types such as application/octet-stream are never extracted,
// whatever the file is called.
func classify(a github.Asset) archiveKind {
	mediaType, _, err := mime.ParseMediaType(a.ContentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(a.ContentType))
	}
	switch mediaType {
	case "application/zip", "application/x-zip-compressed":
		return zipArchive
	case "application/x-tar":
		return tarArchive
	case "application/gzip", "application/x-gzip":
		return tarGzArchive
	case "application/zstd", "application/x-zstd":
		return tarZstArchive
	default:
		return notArchive
	}
}
