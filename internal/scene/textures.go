package scene

import (
	"fmt"
	"image"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/texture"
	"github.com/Faultbox/meshview/internal/importer"
)

// texture returns the registered texture for ref, decoding it on first
// use. File references are keyed by their path joined to the asset
// directory; embedded references keep their *N form.
func (l *loader) texture(ref string, kind TextureKind) *Texture {
	key := ref
	if _, embedded := importer.ParseEmbedded(ref); !embedded {
		key = filepath.Join(l.asset.Dir, ref)
	}
	if t, ok := l.asset.Textures[key]; ok {
		return t
	}

	t := &Texture{Kind: kind, Path: key}
	l.asset.Textures[key] = t

	img, err := l.decode(key)
	if err != nil {
		t.Err = err
		l.log.Warn("texture not loaded", zap.String("texture", key), zap.Error(err))
		return t
	}
	t.Image = img
	t.Width, t.Height = img.Bounds().Dx(), img.Bounds().Dy()
	return t
}

func (l *loader) decode(key string) (*image.RGBA, error) {
	var (
		data     []byte
		mimeType string
		err      error
	)
	if n, embedded := importer.ParseEmbedded(key); embedded {
		if n >= len(l.scene.Embedded) {
			return nil, fmt.Errorf("embedded image %d of %d", n, len(l.scene.Embedded))
		}
		data, mimeType = l.scene.Embedded[n].Data, l.scene.Embedded[n].MimeType
	} else if data, err = l.opts.Source.ReadFile(key); err != nil {
		return nil, err
	}

	decoded, _, err := texture.Decode(data, key, mimeType)
	if err != nil {
		return nil, err
	}
	decoded = texture.Fit(decoded, l.opts.MaxTextureSize)
	return texture.ToRGBA(decoded, l.scene.ColorKey), nil
}
