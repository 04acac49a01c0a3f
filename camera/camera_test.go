package camera

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/mat"
)

func assertCoordNear(t *testing.T, expected, actual model3d.Coord3D, msgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, 0, expected.Dist(actual), 1e-8, msgs...)
}

func TestDefaultIntrinsics(t *testing.T) {
	in := DefaultIntrinsics(640, 480)
	assert.Equal(t, 320.0, in.Fx)
	assert.Equal(t, 320.0, in.Fy)
	assert.Equal(t, 319.5, in.Cx)
	assert.Equal(t, 239.5, in.Cy)
	xFov, yFov := in.FieldOfView()
	assert.InDelta(t, math.Pi/2, xFov, 1e-8)
	assert.InDelta(t, 2*math.Atan(0.75), yFov, 1e-8)
}

func TestInitialPose(t *testing.T) {
	cam, err := New(DefaultIntrinsics(640, 480), InitialPose())
	require.NoError(t, err)

	assertCoordNear(t, model3d.XYZ(0, 0, 4), cam.Origin())
	x, y, z := cam.Axes()
	assertCoordNear(t, model3d.XYZ(1, 0, 0), x)
	assertCoordNear(t, model3d.XYZ(0, -1, 0), y)
	assertCoordNear(t, model3d.XYZ(0, 0, -1), z)

	u, v, depth, ok := cam.Project(model3d.Coord3D{})
	require.True(t, ok)
	assert.InDelta(t, 319.5, u, 1e-8)
	assert.InDelta(t, 239.5, v, 1e-8)
	assert.InDelta(t, 4.0, depth, 1e-8)

	// Points above the origin appear above the image center.
	_, v, _, ok = cam.Project(model3d.XYZ(0, 1, 0))
	require.True(t, ok)
	assert.Less(t, v, 239.5)

	_, _, _, ok = cam.Project(model3d.XYZ(0, 0, 5))
	assert.False(t, ok)

	rc := cam.RenderCamera()
	assertCoordNear(t, model3d.XYZ(0, 0, 4), rc.Origin)
	assert.InDelta(t, math.Pi/2, rc.FieldOfView, 1e-8)
}

func TestProjectUnproject(t *testing.T) {
	pose := LookAtRDF(model3d.XYZ(1, 2, 3), model3d.XYZ(-1, 0.5, 0), model3d.XYZ(0, 0, 1))
	cam, err := New(DefaultIntrinsics(64, 48), pose)
	require.NoError(t, err)

	p := model3d.XYZ(-0.5, 0.7, 0.2)
	u, v, depth, ok := cam.Project(p)
	require.True(t, ok)
	assertCoordNear(t, p, cam.Unproject(u, v, depth))

	ray := cam.Ray(u, v)
	assert.InDelta(t, 1.0, cam.ToCamera(ray.Origin.Add(ray.Direction)).Z, 1e-8)
}

func TestNewErrors(t *testing.T) {
	_, err := New(DefaultIntrinsics(4, 4), mat.NewDense(3, 3, nil))
	assert.Error(t, err)
	_, err = New(Intrinsics{}, InitialPose())
	assert.Error(t, err)
}

func TestInvertRigid(t *testing.T) {
	pose := LookAtRDF(model3d.XYZ(1, -2, 3), model3d.XYZ(0, 1, 0), model3d.XYZ(0, 0, 1))
	product := Compose(pose, InvertRigid(pose))
	identity := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	assert.True(t, mat.EqualApprox(product, identity, 1e-8))
	assert.Len(t, RowMajor(pose), 16)
}

func TestLinearPath(t *testing.T) {
	path := &LinearPath{
		Intrinsics: DefaultIntrinsics(640, 480),
		Step:       model3d.XYZ(0.025, 0, 0),
	}
	assertCoordNear(t, model3d.XYZ(0, 0, 4), path.Camera(0, 100).Origin())
	assertCoordNear(t, model3d.XYZ(0.05, 0, 4), path.Camera(2, 100).Origin())
	assertCoordNear(t, model3d.XYZ(0.025, 0, 4), path.Camera(1, 100).Origin())

	_, _, z := path.Camera(99, 100).Axes()
	assertCoordNear(t, model3d.XYZ(0, 0, -1), z, "orientation is unchanged")
}

func TestRandomPath(t *testing.T) {
	rooms := []Room{
		{Min: model3d.XYZ(0, 0, 0), Max: model3d.XYZ(1, 1, 1)},
		{Min: model3d.XYZ(10, 10, 10), Max: model3d.XYZ(12, 12, 12)},
	}
	maxPitch := 20 * math.Pi / 180
	path := &RandomPath{
		Intrinsics: DefaultIntrinsics(32, 24),
		Rooms:      rooms,
		Up:         model3d.XYZ(0, 0, 1),
		MaxPitch:   maxPitch,
		Rand:       rand.New(rand.NewSource(1)),
	}
	counts := make([]int, 2)
	for i := 0; i < 200; i++ {
		cam := path.Camera(i, 200)
		origin := cam.Origin()
		inside := -1
		for j, r := range rooms {
			if origin.Min(r.Min) == r.Min && origin.Max(r.Max) == r.Max {
				inside = j
			}
		}
		require.NotEqual(t, -1, inside, "camera outside rooms: %v", origin)
		counts[inside]++

		_, y, z := cam.Axes()
		assert.LessOrEqual(t, math.Abs(z.Z), math.Sin(maxPitch)+1e-8)
		assert.Less(t, y.Z, 0.0, "image y axis points down")
	}
	// The larger room has eight times the volume.
	assert.Greater(t, counts[1], counts[0])

	first := (&RandomPath{Rooms: rooms, Up: model3d.XYZ(0, 0, 1), Rand: rand.New(rand.NewSource(3)),
		Intrinsics: DefaultIntrinsics(8, 8)}).Camera(0, 1)
	second := (&RandomPath{Rooms: rooms, Up: model3d.XYZ(0, 0, 1), Rand: rand.New(rand.NewSource(3)),
		Intrinsics: DefaultIntrinsics(8, 8)}).Camera(0, 1)
	assert.True(t, mat.Equal(first.CameraFromWorld, second.CameraFromWorld), "seeded paths repeat")
}

func TestRoomTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")
	data := `{"room_0": [{"min": [0, 0, 0], "max": [2, 3, 1]}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	table, err := LoadRoomTable(path)
	require.NoError(t, err)
	rooms := table.Rooms("room_0", model3d.Coord3D{}, model3d.XYZ(1, 1, 1))
	require.Len(t, rooms, 1)
	assert.Equal(t, model3d.XYZ(2, 3, 1), rooms[0].Max)
	assert.Equal(t, 6.0, rooms[0].Volume())

	fallback := table.Rooms("office_0", model3d.Coord3D{}, model3d.XYZ(10, 10, 10))
	require.Len(t, fallback, 1)
	assertCoordNear(t, model3d.XYZ(1, 1, 1), fallback[0].Min)
	assertCoordNear(t, model3d.XYZ(9, 9, 9), fallback[0].Max)

	require.NoError(t, os.WriteFile(path, []byte(`{"room_0": [{"min": [1, 1, 1], "max": [0, 0, 0]}]}`), 0644))
	_, err = LoadRoomTable(path)
	assert.Error(t, err)
}
