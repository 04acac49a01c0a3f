// Command point_cloud reconstructs a mesh from the depth frames and camera
// files of a rendered sequence.
package main

import (
	"flag"
	"image"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"

	"github.com/roym899/Replica-Dataset/dataset"
	"github.com/roym899/Replica-Dataset/render"
)

func main() {
	var thickness float64
	var delta float64
	var maxPoints int
	var stride int
	var dataDir string
	var outputPath string
	flag.Float64Var(&thickness, "thickness", 0.02, "radius of each point")
	flag.Float64Var(&delta, "delta", 0.02, "marching cubes delta")
	flag.IntVar(&maxPoints, "max-points", 50000, "maximum points to sample")
	flag.IntVar(&stride, "stride", 1, "only use every n-th pixel in each direction")
	flag.StringVar(&dataDir, "data-dir", "", "directory of rendered frames")
	flag.StringVar(&outputPath, "output-path", "", "output STL path")
	flag.Parse()
	if dataDir == "" || outputPath == "" {
		essentials.Die("Must specify -data-dir and -output-path")
	}

	log.Println("Computing points...")
	points := []model3d.Coord3D{}
	for i := 0; true; i++ {
		metadataPath := filepath.Join(dataDir, dataset.CameraName(i))
		imgPath := filepath.Join(dataDir, dataset.DepthName(i))

		if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
			break
		}
		var metadata dataset.CameraMetadata
		essentials.Must(dataset.ReadJSON(metadataPath, &metadata))
		depth, err := dataset.LoadDepth(imgPath)
		essentials.Must(err)

		framePoints, err := DepthPoints(&metadata, depth, stride)
		essentials.Must(err)
		points = append(points, framePoints...)
	}
	if len(points) == 0 {
		essentials.Die("No depth points found in", dataDir)
	}

	if len(points) > maxPoints {
		log.Printf("Found %d points. Reducing to %d...", len(points), maxPoints)
		rand.Shuffle(len(points), func(i, j int) {
			points[i], points[j] = points[j], points[i]
		})
		points = points[:maxPoints]
	} else {
		log.Printf("Using all %d points.", len(points))
	}

	log.Println("Constructing solid...")
	min := points[0]
	max := points[0]
	for _, p := range points {
		min = min.Min(p)
		max = max.Max(p)
	}
	tree := model3d.NewCoordTree(points)
	solid := model3d.CheckedFuncSolid(
		min.Sub(model3d.XYZ(thickness, thickness, thickness)),
		max.Add(model3d.XYZ(thickness, thickness, thickness)),
		func(c model3d.Coord3D) bool {
			return tree.Dist(c) < thickness
		},
	)

	log.Println("Creating mesh...")
	mesh := model3d.MarchingCubesSearch(solid, delta, 8)

	log.Println("Saving mesh...")
	essentials.Must(mesh.SaveGroupedSTL(outputPath))
}

// DepthPoints unprojects every non-zero depth pixel into world space.
// Metadata without a depth scale uses render.DefaultDepthScale.
func DepthPoints(meta *dataset.CameraMetadata, depth *image.Gray16, stride int) ([]model3d.Coord3D, error) {
	cam, err := meta.Camera()
	if err != nil {
		return nil, err
	}
	if stride < 1 {
		stride = 1
	}
	scale := meta.DepthScale
	if scale <= 0 {
		scale = render.DefaultDepthScale
	}
	var res []model3d.Coord3D
	b := depth.Bounds()
	for y := 0; y < b.Dy(); y += stride {
		for x := 0; x < b.Dx(); x += stride {
			value := depth.Gray16At(x+b.Min.X, y+b.Min.Y).Y
			if value == 0 {
				continue
			}
			z := float64(value) / scale
			res = append(res, cam.Unproject(float64(x), float64(y), z))
		}
	}
	return res, nil
}
