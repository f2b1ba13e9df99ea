package storagepaths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imagehub/imagehub/go-services/internal/config"
)

// PathSet holds the three storage paths derived for one asset. For animated
// GIFs all three collapse to the single GIF path since no transcoding
// variants exist for that format.
type PathSet struct {
	Original string
	WebP     string
	AVIF     string
}

// Layout maps an asset identity to its storage paths. Two implementations:
// the flat single-tenant legacy layout (API-key mode) and the per-user layout
// (OIDC mode). Both are pure; the outputs must stay bit-compatible with data
// written by earlier deployments.
type Layout interface {
	PathsFor(assetID, orientation, format string) PathSet
	Directories(base string) []string
}

// LayoutFor selects the layout for the configured mode. The per-user layout
// only applies in OIDC mode where a real user identity exists.
func LayoutFor(mode config.AuthMode, userID string) Layout {
	if mode == config.ModeOIDC {
		return UserLayout{UserID: userID}
	}
	return LegacyLayout{}
}

// extensionFor maps an image format onto the stored file extension.
// Unknown formats fall back to .jpg; this is an explicit choice, not an error.
func extensionFor(format string) string {
	switch format {
	case "jpeg", "jpg":
		return ".jpg"
	case "png":
		return ".png"
	case "webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// LegacyLayout is the flat single-tenant layout used in API-key mode.
type LegacyLayout struct{}

func (LegacyLayout) PathsFor(assetID, orientation, format string) PathSet {
	if format == "gif" {
		gif := filepath.Join("gif", assetID+".gif")
		return PathSet{Original: gif, WebP: gif, AVIF: gif}
	}
	return PathSet{
		Original: filepath.Join("original", orientation, assetID+extensionFor(format)),
		WebP:     filepath.Join(orientation, "webp", assetID+".webp"),
		AVIF:     filepath.Join(orientation, "avif", assetID+".avif"),
	}
}

func (LegacyLayout) Directories(base string) []string {
	return []string{
		filepath.Join(base, "original", "landscape"),
		filepath.Join(base, "original", "portrait"),
		filepath.Join(base, "landscape", "webp"),
		filepath.Join(base, "landscape", "avif"),
		filepath.Join(base, "portrait", "webp"),
		filepath.Join(base, "portrait", "avif"),
		filepath.Join(base, "gif"),
	}
}

// UserLayout nests the legacy structure under users/<userID>.
type UserLayout struct {
	UserID string
}

func (l UserLayout) prefix() string {
	return filepath.Join("users", l.UserID)
}

func (l UserLayout) PathsFor(assetID, orientation, format string) PathSet {
	p := LegacyLayout{}.PathsFor(assetID, orientation, format)
	return PathSet{
		Original: filepath.Join(l.prefix(), p.Original),
		WebP:     filepath.Join(l.prefix(), p.WebP),
		AVIF:     filepath.Join(l.prefix(), p.AVIF),
	}
}

func (l UserLayout) Directories(base string) []string {
	return LegacyLayout{}.Directories(filepath.Join(base, l.prefix()))
}

// EnsureDirectories creates every directory the layout requires before
// writes. MkdirAll makes this idempotent: existing directories are a no-op.
func EnsureDirectories(l Layout, base string) error {
	for _, dir := range l.Directories(base) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
