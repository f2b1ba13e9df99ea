package storagepaths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imagehub/imagehub/go-services/internal/config"
)

func TestLegacyLayout_Paths(t *testing.T) {
	p := LegacyLayout{}.PathsFor("abc", "landscape", "jpeg")
	assert.Equal(t, filepath.Join("original", "landscape", "abc.jpg"), p.Original)
	assert.Equal(t, filepath.Join("landscape", "webp", "abc.webp"), p.WebP)
	assert.Equal(t, filepath.Join("landscape", "avif", "abc.avif"), p.AVIF)
}

func TestUserLayout_Paths(t *testing.T) {
	p := UserLayout{UserID: "u1"}.PathsFor("abc", "landscape", "jpeg")
	assert.Equal(t, filepath.Join("users", "u1", "original", "landscape", "abc.jpg"), p.Original)
	assert.Equal(t, filepath.Join("users", "u1", "landscape", "webp", "abc.webp"), p.WebP)
	assert.Equal(t, filepath.Join("users", "u1", "landscape", "avif", "abc.avif"), p.AVIF)
}

func TestGIFCollapse(t *testing.T) {
	p := LegacyLayout{}.PathsFor("anim", "portrait", "gif")
	gif := filepath.Join("gif", "anim.gif")
	assert.Equal(t, gif, p.Original)
	assert.Equal(t, gif, p.WebP)
	assert.Equal(t, gif, p.AVIF)

	up := UserLayout{UserID: "u2"}.PathsFor("anim", "portrait", "gif")
	ugif := filepath.Join("users", "u2", "gif", "anim.gif")
	assert.Equal(t, ugif, up.Original)
	assert.Equal(t, ugif, up.WebP)
	assert.Equal(t, ugif, up.AVIF)
}

func TestExtensionMapping(t *testing.T) {
	cases := map[string]string{
		"jpeg": ".jpg",
		"jpg":  ".jpg",
		"png":  ".png",
		"webp": ".webp",
		"tiff": ".jpg", // explicit fallback, not an error
		"":     ".jpg",
	}
	for format, ext := range cases {
		p := LegacyLayout{}.PathsFor("x", "portrait", format)
		assert.Equal(t, filepath.Join("original", "portrait", "x"+ext), p.Original, "format %q", format)
	}
}

func TestLayoutFor(t *testing.T) {
	assert.IsType(t, LegacyLayout{}, LayoutFor(config.ModeAPIKey, ""))
	l := LayoutFor(config.ModeOIDC, "u3")
	ul, ok := l.(UserLayout)
	require.True(t, ok)
	assert.Equal(t, "u3", ul.UserID)
}

func TestDirectories(t *testing.T) {
	dirs := LegacyLayout{}.Directories("/data")
	require.Len(t, dirs, 7)
	assert.Contains(t, dirs, filepath.Join("/data", "original", "landscape"))
	assert.Contains(t, dirs, filepath.Join("/data", "gif"))

	udirs := UserLayout{UserID: "u4"}.Directories("/data")
	require.Len(t, udirs, 7)
	for _, d := range udirs {
		assert.Contains(t, d, filepath.Join("/data", "users", "u4"))
	}
}

func TestEnsureDirectories_Idempotent(t *testing.T) {
	base := t.TempDir()
	l := UserLayout{UserID: "u5"}

	require.NoError(t, EnsureDirectories(l, base))
	// repeated invocation over existing directories is a no-op
	require.NoError(t, EnsureDirectories(l, base))

	for _, d := range l.Directories(base) {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
