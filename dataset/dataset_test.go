package dataset

import (
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"

	"github.com/roym899/Replica-Dataset/camera"
	"github.com/roym899/Replica-Dataset/mirror"
	"github.com/roym899/Replica-Dataset/ptex"
	"github.com/roym899/Replica-Dataset/render"
)

const wallPLY = `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
property uchar red
property uchar green
property uchar blue
element face 1
property list uchar int vertex_indices
end_header
-2 -2 0 200 100 50
2 -2 0 200 100 50
2 2 0 200 100 50
-2 2 0 200 100 50
4 0 1 2 3
`

const wallMirrors = `[{"equation": [0, 0, 1, -0.5], "points": [[-0.2, -0.2, 0.5], [0.2, -0.2, 0.5], [0.2, 0.2, 0.5]], "reflectivity": 0.5}]`

func writeScene(t *testing.T, root, name string) *Scene {
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "textures"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mesh.ply"), []byte(wallPLY), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "glass.sur"), []byte(wallMirrors), 0644))
	scene, err := OpenScene(root, name)
	require.NoError(t, err)
	return scene
}

func TestOpenScene(t *testing.T) {
	root := t.TempDir()
	scene := writeScene(t, root, "room_0")
	assert.Equal(t, filepath.Join(root, "room_0", "mesh.ply"), scene.MeshPath())
	assert.Equal(t, filepath.Join(root, "room_0", "textures"), scene.AtlasDir())
	assert.Equal(t, filepath.Join(root, "room_0", "glass.sur"), scene.SurfacePath())

	_, err := OpenScene(root, "garage_7")
	assert.Error(t, err, "unknown scene")

	_, err = OpenScene(root, "room_1")
	assert.Error(t, err, "missing directory")

	for _, missing := range []string{"mesh.ply", "textures", "glass.sur"} {
		root := t.TempDir()
		writeScene(t, root, "office_0")
		require.NoError(t, os.RemoveAll(filepath.Join(root, "office_0", missing)))
		_, err := OpenScene(root, "office_0")
		if assert.Error(t, err, missing) {
			assert.Contains(t, err.Error(), missing)
		}
	}

	assert.Len(t, Scenes, 17)
	assert.True(t, IsKnownScene(DefaultScene))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "frame000000.jpg", FrameName(0))
	assert.Equal(t, "depth000042.png", DepthName(42))
	assert.Equal(t, "camera123456.json", CameraName(123456))
}

func TestMkdirOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, MkdirOutput(dir))
	require.NoError(t, MkdirOutput(dir))

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, MkdirOutput(file))
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	scene := writeScene(t, root, DefaultScene)

	mesh, err := ptex.Load(scene.MeshPath(), scene.AtlasDir())
	require.NoError(t, err)
	surfaces, err := mirror.ReadSurfacesFile(scene.SurfacePath())
	require.NoError(t, err)
	require.Len(t, surfaces, 1)

	in := camera.DefaultIntrinsics(8, 6)
	r := &render.Renderer{
		Mesh:       mesh,
		Mirrors:    mirror.NewRenderer(surfaces, in.Width, in.Height),
		DepthScale: render.DefaultDepthScale,
	}
	path := &camera.LinearPath{Intrinsics: in, Step: model3d.XYZ(0.025, 0, 0)}

	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, MkdirOutput(out))
	require.NoError(t, WriteGlobalMetadata(out, NewGlobalMetadata(scene.Name, mesh.Min(), mesh.Max())))

	var progress []int
	opts := Options{
		OutputDir: out,
		NumFrames: 3,
		Depth:     true,
		Metadata:  true,
		Progress: func(i, total int) {
			assert.Equal(t, 3, total)
			progress = append(progress, i)
		},
	}
	require.NoError(t, Generate(opts, r, path))
	assert.Equal(t, []int{0, 1, 2}, progress)

	for i := 0; i < 3; i++ {
		for _, name := range []string{FrameName(i), DepthName(i), CameraName(i)} {
			assert.FileExists(t, filepath.Join(out, name))
		}
	}
	assert.NoFileExists(t, filepath.Join(out, FrameName(3)))

	var global GlobalMetadata
	require.NoError(t, ReadJSON(filepath.Join(out, "metadata.json"), &global))
	assert.Equal(t, DefaultScene, global.Scene)
	assert.Equal(t, [3]float64{2, 2, 0}, global.Max)

	var meta CameraMetadata
	require.NoError(t, ReadJSON(filepath.Join(out, CameraName(2)), &meta))
	cam, err := meta.Camera()
	require.NoError(t, err)
	assert.InDelta(t, 0, cam.Origin().Dist(model3d.XYZ(0.05, 0, 4)), 1e-8)
	assert.Equal(t, in, meta.Intrinsics)
	assert.InDelta(t, 0, model3d.NewCoord3DArray(meta.Z).Dist(model3d.XYZ(0, 0, -1)), 1e-8)
	assert.InDelta(t, 0, model3d.NewCoord3DArray(meta.Y).Dist(model3d.XYZ(0, -1, 0)), 1e-8)
	assert.InDelta(t, math.Pi/2, meta.XFov, 1e-8)

	depth, err := LoadDepth(filepath.Join(out, DepthName(0)))
	require.NoError(t, err)
	assert.Equal(t, uint16(26214), depth.Gray16At(4, 3).Y)
}

func loadJPEG(t *testing.T, path string) image.Image {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	return img
}

func assertPixel(t *testing.T, img image.Image, x, y int, expected [3]int) {
	t.Helper()
	r, g, b, _ := img.At(x, y).RGBA()
	actual := [3]int{int(r >> 8), int(g >> 8), int(b >> 8)}
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], 4, "channel %d of %v", i, actual)
	}
}

func TestGenerateWorkingDirectory(t *testing.T) {
	scene := writeScene(t, t.TempDir(), "room_2")
	mesh, err := ptex.Load(scene.MeshPath(), scene.AtlasDir())
	require.NoError(t, err)
	r := &render.Renderer{Mesh: mesh}

	// Close enough to the wall that it fills the view.
	in := camera.DefaultIntrinsics(8, 8)
	path := &camera.LinearPath{
		Intrinsics: in,
		Start:      camera.LookAtRDF(model3d.XYZ(0, 0, 1), model3d.Coord3D{}, model3d.XYZ(0, 1, 0)),
	}

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	require.NoError(t, WriteGlobalMetadata("", NewGlobalMetadata(scene.Name, mesh.Min(), mesh.Max())))
	require.NoError(t, Generate(Options{NumFrames: 2, JPEGQuality: 100, Depth: true, Metadata: true}, r, path))

	for _, name := range []string{"metadata.json", FrameName(0), FrameName(1), DepthName(1), CameraName(1)} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assertPixel(t, loadJPEG(t, filepath.Join(dir, FrameName(0))), 4, 4, [3]int{200, 100, 50})
}

func TestGenerateMirrorPixels(t *testing.T) {
	scene := writeScene(t, t.TempDir(), "office_3")
	// A half-reflective mirror covering the view reflects empty space, so
	// it halves the displayed wall color.
	halfMirror := `[{"equation": [0, 0, 1, -0.5], "points": [[-2, -2, 0.5], [2, -2, 0.5], [2, 2, 0.5], [-2, 2, 0.5]], "reflectivity": 0.5}]`
	require.NoError(t, os.WriteFile(scene.SurfacePath(), []byte(halfMirror), 0644))

	mesh, err := ptex.Load(scene.MeshPath(), scene.AtlasDir())
	require.NoError(t, err)
	surfaces, err := mirror.ReadSurfacesFile(scene.SurfacePath())
	require.NoError(t, err)

	in := camera.DefaultIntrinsics(8, 8)
	r := &render.Renderer{Mesh: mesh, Mirrors: mirror.NewRenderer(surfaces, in.Width, in.Height)}
	path := &camera.LinearPath{
		Intrinsics: in,
		Start:      camera.LookAtRDF(model3d.XYZ(0, 0, 1), model3d.Coord3D{}, model3d.XYZ(0, 1, 0)),
	}
	out := t.TempDir()
	require.NoError(t, Generate(Options{OutputDir: out, NumFrames: 1, JPEGQuality: 100}, r, path))

	frame := loadJPEG(t, filepath.Join(out, FrameName(0)))
	assertPixel(t, frame, 4, 4, [3]int{100, 50, 25})
	assertPixel(t, frame, 1, 6, [3]int{100, 50, 25})

	depth := r.RenderDepth(path.Camera(0, 1))
	assert.Equal(t, uint16(6554), depth.Gray16At(4, 4).Y, "mirrors do not change depth")
}

func TestGenerateErrors(t *testing.T) {
	root := t.TempDir()
	scene := writeScene(t, root, "hotel_0")
	mesh, err := ptex.Load(scene.MeshPath(), scene.AtlasDir())
	require.NoError(t, err)
	r := &render.Renderer{Mesh: mesh}
	path := &camera.LinearPath{Intrinsics: camera.DefaultIntrinsics(4, 4)}

	assert.Error(t, Generate(Options{NumFrames: -1}, r, path))

	missing := filepath.Join(t.TempDir(), "missing")
	assert.Error(t, Generate(Options{OutputDir: missing, NumFrames: 1}, r, path))
}
