// Package viewer holds the pieces shared by the interactive viewer and the
// offscreen snapshot tool: the loaded-asset session, the framebuffer
// renderer and the file watcher that drives hot reload.
package viewer

import (
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
)

// Session owns the currently displayed asset. A failed load leaves the
// previous asset in place; a successful one releases it.
type Session struct {
	Options scene.Options

	asset  *scene.Asset
	path   string
	source importer.Source
}

// NewSession returns an empty session loading with opts.
func NewSession(opts scene.Options) *Session {
	return &Session{Options: opts}
}

// Asset returns the current asset, or nil.
func (s *Session) Asset() *scene.Asset { return s.asset }

// Path returns the path of the current asset.
func (s *Session) Path() string { return s.path }

// Source returns where the current asset was read from, or nil.
func (s *Session) Source() importer.Source { return s.source }

// Open loads path and makes it current. A path that exists on disk is read
// from disk even when Options.Source is an archive. The returned error is a
// *scene.ImportError.
func (s *Session) Open(path string) error {
	return s.OpenFrom(s.sourceFor(path), path)
}

// OpenFrom loads path from src and makes it current. Textures are read from
// src too.
func (s *Session) OpenFrom(src importer.Source, path string) error {
	log := logger.Named("viewer")

	opts := s.Options
	opts.Source = src
	a, err := scene.LoadWithOptions(path, opts)
	if err != nil {
		log.Error("load failed, keeping previous asset", zap.Error(err))
		return err
	}

	// Keep the user's placement when the same file comes back.
	if s.asset != nil && path == s.path {
		a.Translation = s.asset.Translation
		a.RotationAxis = s.asset.RotationAxis
		a.RotationAngle = s.asset.RotationAngle
		a.Scale = s.asset.Scale
	}
	s.asset.Release()
	s.asset, s.path, s.source = a, path, src

	st := a.Stats()
	log.Info("asset loaded",
		zap.String("path", path),
		zap.String("format", a.Format),
		zap.Int("meshes", st.Meshes),
		zap.Int("triangles", st.Triangles),
		zap.Int("textures", st.Textures),
	)
	return nil
}

// Reload loads the current path again. It does nothing without an asset.
func (s *Session) Reload() error {
	if s.path == "" {
		return nil
	}
	return s.OpenFrom(s.source, s.path)
}

func (s *Session) sourceFor(path string) importer.Source {
	switch s.Options.Source.(type) {
	case nil, importer.Disk, *importer.Disk:
		return s.Options.Source
	}
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		logger.Named("viewer").Debug("reading from disk instead of archive", zap.String("path", path))
		return importer.Disk{}
	}
	return s.Options.Source
}

// ResetTransform clears the user translation, rotation and scale.
func (s *Session) ResetTransform() {
	if s.asset == nil {
		return
	}
	s.asset.Translation = mgl32.Vec3{}
	s.asset.RotationAxis = mgl32.Vec3{0, 1, 0}
	s.asset.RotationAngle = 0
	s.asset.Scale = mgl32.Vec3{1, 1, 1}
}

// Close releases the current asset.
func (s *Session) Close() {
	s.asset.Release()
	s.asset, s.path, s.source = nil, "", nil
}
