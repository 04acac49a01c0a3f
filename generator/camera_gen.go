package main

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"

	"github.com/roym899/Replica-Dataset/camera"
)

type CameraGenArgs struct {
	Policy     string
	Scene      string
	Intrinsics camera.Intrinsics
	Step       model3d.Coord3D
	Up         model3d.Coord3D
	RoomsPath  string
	MaxPitch   float64
	Seed       int64

	// SceneMin and SceneMax bound the mesh, for scenes without rooms.
	SceneMin model3d.Coord3D
	SceneMax model3d.Coord3D
}

func NewCameraGen(args *CameraGenArgs) (camera.Path, error) {
	switch args.Policy {
	case "linear":
		return &camera.LinearPath{
			Intrinsics: args.Intrinsics,
			Step:       args.Step,
		}, nil
	case "random":
		table := camera.RoomTable{}
		if args.RoomsPath != "" {
			var err error
			table, err = camera.LoadRoomTable(args.RoomsPath)
			if err != nil {
				return nil, err
			}
		}
		if args.Up.Norm() == 0 {
			return nil, errors.New("up vector must be non-zero")
		}
		return &camera.RandomPath{
			Intrinsics: args.Intrinsics,
			Rooms:      table.Rooms(args.Scene, args.SceneMin, args.SceneMax),
			Up:         args.Up,
			MaxPitch:   args.MaxPitch * math.Pi / 180,
			Rand:       rand.New(rand.NewSource(args.Seed)),
		}, nil
	default:
		return nil, errors.Errorf("unknown camera path: %s", args.Policy)
	}
}
