package shader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompileError(t *testing.T) {
	err := error(&CompileError{Stage: StageFragment, Log: "0:12: 'foo' : undeclared identifier\n\x00"})
	want := "fragment shader: 0:12: 'foo' : undeclared identifier"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var ce *CompileError
	if !errors.As(err, &ce) || ce.Stage != StageFragment {
		t.Errorf("errors.As failed for %v", err)
	}
}

func TestNames(t *testing.T) {
	got := strings.Join(Names(), ",")
	if got != "default,depth" {
		t.Errorf("Names() = %s", got)
	}
}

// The uniforms written by scene.Draw and lighting.Apply must exist in the
// default program.
func TestBuiltinUniforms(t *testing.T) {
	src, ok := Builtin("default")
	if !ok {
		t.Fatal("default program missing")
	}
	all := src.Vertex + src.Fragment
	for _, decl := range []string{
		"uniform mat4 camera",
		"uniform mat4 model",
		"uniform mat3 normalMatrix",
		"uniform vec3 cameraPosition",
		"uniform sampler2D textureDiffuse0",
		"uniform sampler2D textureSpecular0",
		"uniform bool hasDiffuse",
		"uniform bool hasSpecular",
		"uniform bool lighting",
		"uniform Light light",
		"uniform float shininess",
	} {
		if !strings.Contains(all, decl) {
			t.Errorf("default program lacks %q", decl)
		}
	}

	for _, name := range []string{"depth", "bounds"} {
		src, ok := Builtin(name)
		if !ok || !strings.HasPrefix(src.Vertex, "#version 410 core") || !strings.HasPrefix(src.Fragment, "#version 410 core") {
			t.Errorf("builtin %s is malformed", name)
		}
	}
	if _, ok := Builtin("missing"); ok {
		t.Error("unexpected builtin")
	}
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	vert := filepath.Join(dir, "a.vert")
	frag := filepath.Join(dir, "a.frag")
	if err := os.WriteFile(vert, []byte("v"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadSource(vert, frag); err == nil || !strings.Contains(err.Error(), "fragment") {
		t.Errorf("expected fragment read error, got %v", err)
	}

	if err := os.WriteFile(frag, []byte("f"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := ReadSource(vert, frag)
	if err != nil {
		t.Fatal(err)
	}
	if src.Vertex != "v" || src.Fragment != "f" {
		t.Errorf("got %+v", src)
	}
}
