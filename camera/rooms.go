package camera

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
)

// A RoomTable maps scene names to the rooms cameras may be placed in.
type RoomTable map[string][]Room

type jsonRoom struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// LoadRoomTable reads a JSON object mapping scene names to lists of
// {"min": [x, y, z], "max": [x, y, z]} boxes.
func LoadRoomTable(path string) (RoomTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string][]jsonRoom
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, essentials.AddCtx(path, err)
	}
	res := RoomTable{}
	for scene, rooms := range raw {
		for i, r := range rooms {
			room := Room{
				Min: model3d.NewCoord3DArray(r.Min),
				Max: model3d.NewCoord3DArray(r.Max),
			}
			if room.Volume() <= 0 {
				return nil, errors.Errorf("%s: scene %s: room %d is empty", path, scene, i)
			}
			res[scene] = append(res[scene], room)
		}
	}
	return res, nil
}

// Rooms gets the rooms of a scene, falling back to the given bounding box
// shrunk by 10% on every side.
func (r RoomTable) Rooms(scene string, min, max model3d.Coord3D) []Room {
	if rooms := r[scene]; len(rooms) > 0 {
		return rooms
	}
	inset := max.Sub(min).Scale(0.1)
	return []Room{{Min: min.Add(inset), Max: max.Sub(inset)}}
}
