package camera

import (
	"math"
	"math/rand"

	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/mat"
)

// A Path produces the camera for each frame of a sequence.
type Path interface {
	Camera(i, total int) *Camera
}

// InitialPose is the starting pose of a LinearPath when none is given: a
// camera at (0, 0, 4) looking at the origin.
func InitialPose() *mat.Dense {
	return LookAtRDF(model3d.XYZ(0, 0, 4), model3d.Coord3D{}, model3d.XYZ(0, 1, 0))
}

// A LinearPath moves the camera by a fixed world translation every frame.
//
// The pose of frame i+1 is pose(i) * inverse(Translation(Step)).
type LinearPath struct {
	Intrinsics Intrinsics
	Start      *mat.Dense
	Step       model3d.Coord3D

	poses []*mat.Dense
}

func (l *LinearPath) Camera(i, total int) *Camera {
	if len(l.poses) == 0 {
		start := l.Start
		if start == nil {
			start = InitialPose()
		}
		l.poses = append(l.poses, start)
	}
	inverseStep := InvertRigid(Translation(l.Step))
	for len(l.poses) <= i {
		last := l.poses[len(l.poses)-1]
		l.poses = append(l.poses, Compose(last, inverseStep))
	}
	return &Camera{Intrinsics: l.Intrinsics, CameraFromWorld: l.poses[i]}
}

// A Room is an axis-aligned box cameras may be placed in.
type Room struct {
	Min model3d.Coord3D
	Max model3d.Coord3D
}

// Volume gets the volume of the box, or 0 if it is inverted.
func (r Room) Volume() float64 {
	s := r.Max.Sub(r.Min)
	return math.Max(0, s.X) * math.Max(0, s.Y) * math.Max(0, s.Z)
}

// A RandomPath samples every camera independently: a room is chosen with
// probability proportional to its volume, the eye is uniform in the room,
// and the view direction has uniform yaw around Up and a pitch within
// MaxPitch radians of the horizon.
type RandomPath struct {
	Intrinsics Intrinsics
	Rooms      []Room
	Up         model3d.Coord3D
	MaxPitch   float64

	// Rand is used for sampling if non-nil.
	Rand *rand.Rand
}

func (r *RandomPath) Camera(i, total int) *Camera {
	room := r.sampleRoom()
	eye := model3d.XYZ(
		room.Min.X+r.float()*(room.Max.X-room.Min.X),
		room.Min.Y+r.float()*(room.Max.Y-room.Min.Y),
		room.Min.Z+r.float()*(room.Max.Z-room.Min.Z),
	)
	up := r.Up.Normalize()
	b1, b2 := horizontalBasis(up)
	yaw := r.float() * 2 * math.Pi
	maxPitch := math.Min(math.Abs(r.MaxPitch), math.Pi/2*0.99)
	pitch := (2*r.float() - 1) * maxPitch
	forward := b1.Scale(math.Cos(yaw)).Add(b2.Scale(math.Sin(yaw))).Scale(math.Cos(pitch)).
		Add(up.Scale(math.Sin(pitch)))
	return &Camera{
		Intrinsics:      r.Intrinsics,
		CameraFromWorld: LookAtRDF(eye, eye.Add(forward), up),
	}
}

func (r *RandomPath) sampleRoom() Room {
	var total float64
	for _, room := range r.Rooms {
		total += room.Volume()
	}
	if total == 0 {
		return r.Rooms[int(r.float()*float64(len(r.Rooms)))%len(r.Rooms)]
	}
	x := r.float() * total
	for _, room := range r.Rooms {
		x -= room.Volume()
		if x < 0 {
			return room
		}
	}
	return r.Rooms[len(r.Rooms)-1]
}

func (r *RandomPath) float() float64 {
	if r.Rand != nil {
		return r.Rand.Float64()
	}
	return rand.Float64()
}

func horizontalBasis(up model3d.Coord3D) (model3d.Coord3D, model3d.Coord3D) {
	a := model3d.XYZ(1, 0, 0)
	if math.Abs(up.X) > 0.9 {
		a = model3d.XYZ(0, 1, 0)
	}
	b1 := a.Sub(up.Scale(a.Dot(up))).Normalize()
	return b1, up.Cross(b1)
}
