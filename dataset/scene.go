// Package dataset lays out scene inputs and writes rendered frame
// sequences.
package dataset

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Scenes lists every scene of the corpus.
var Scenes = []string{
	"apartment_0",
	"apartment_1",
	"apartment_2",
	"frl_apartment_0",
	"frl_apartment_1",
	"frl_apartment_2",
	"frl_apartment_3",
	"frl_apartment_5",
	"hotel_0",
	"office_0",
	"office_1",
	"office_2",
	"office_3",
	"office_4",
	"room_0",
	"room_1",
	"room_2",
}

// DefaultScene is the scene rendered when none is specified.
const DefaultScene = "apartment_1"

// A Scene is the directory holding one captured scene.
type Scene struct {
	Name string
	Dir  string
}

func (s *Scene) MeshPath() string {
	return filepath.Join(s.Dir, "mesh.ply")
}

func (s *Scene) AtlasDir() string {
	return filepath.Join(s.Dir, "textures")
}

func (s *Scene) SurfacePath() string {
	return filepath.Join(s.Dir, "glass.sur")
}

// IsKnownScene checks if name is one of Scenes.
func IsKnownScene(name string) bool {
	for _, s := range Scenes {
		if s == name {
			return true
		}
	}
	return false
}

// OpenScene locates a scene under root and checks that its mesh, atlas
// folder and surface file all exist.
func OpenScene(root, name string) (*Scene, error) {
	if !IsKnownScene(name) {
		return nil, errors.Errorf("unknown scene: %s", name)
	}
	s := &Scene{Name: name, Dir: filepath.Join(root, name)}
	for _, path := range []string{s.MeshPath(), s.AtlasDir(), s.SurfacePath()} {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrap(err, "missing scene input")
		}
	}
	return s, nil
}
