// Command generator renders RGB and depth sequences of a scene along a
// camera path, compositing the scene's mirrors into every frame.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"

	"github.com/roym899/Replica-Dataset/camera"
	"github.com/roym899/Replica-Dataset/dataset"
	"github.com/roym899/Replica-Dataset/mirror"
	"github.com/roym899/Replica-Dataset/ptex"
	"github.com/roym899/Replica-Dataset/render"
)

func main() {
	var sceneName string
	var width int
	var height int
	var numFrames int
	var policy string
	var roomsPath string
	var maxPitch float64
	var seed int64
	var renderDepth bool
	var depthScale float64
	var exposure float64
	var gamma float64
	var saturation float64
	var noMirrors bool
	var noMetadata bool
	var quality int
	step := VectorFlag{Value: model3d.XYZ(0.025, 0, 0)}
	up := VectorFlag{Value: model3d.XYZ(0, 0, 1)}

	flag.StringVar(&sceneName, "scene", dataset.DefaultScene, "name of the scene to render")
	flag.IntVar(&width, "width", 640, "width of rendered frames")
	flag.IntVar(&height, "height", 480, "height of rendered frames")
	flag.IntVar(&numFrames, "frames", 100, "number of frames to render")
	flag.StringVar(&policy, "path", "linear", "camera path: 'linear' or 'random'")
	flag.Var(&step, "step", "per-frame camera translation for linear paths, as 'x,y,z'")
	flag.Var(&up, "up", "world up axis for random paths, as 'x,y,z'")
	flag.StringVar(&roomsPath, "rooms", "", "JSON room table for random paths")
	flag.Float64Var(&maxPitch, "max-pitch", 15, "maximum camera pitch in degrees for random paths")
	flag.Int64Var(&seed, "seed", 0, "seed for random paths")
	flag.BoolVar(&renderDepth, "depth", true, "render depth frames")
	flag.Float64Var(&depthScale, "depth-scale", render.DefaultDepthScale, "depth units per meter")
	flag.Float64Var(&exposure, "exposure", ptex.DefaultExposure, "exposure of HDR textures")
	flag.Float64Var(&gamma, "gamma", ptex.DefaultGamma, "gamma of HDR textures")
	flag.Float64Var(&saturation, "saturation", ptex.DefaultSaturation, "saturation of HDR textures")
	flag.BoolVar(&noMirrors, "no-mirrors", false, "do not render mirror reflections")
	flag.BoolVar(&noMetadata, "no-metadata", false, "do not save per-frame camera files")
	flag.IntVar(&quality, "quality", 90, "JPEG quality of color frames")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: generator [flags] <replica_folder> [output_folder]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Flags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	flag.Parse()
	if len(flag.Args()) != 1 && len(flag.Args()) != 2 {
		flag.Usage()
	}
	if width <= 0 || height <= 0 {
		essentials.Die("invalid frame size:", width, "x", height)
	}

	scene, err := dataset.OpenScene(flag.Args()[0], sceneName)
	essentials.Must(err)

	var outputDir string
	if len(flag.Args()) == 2 {
		outputDir = flag.Args()[1]
		log.Printf("Creating output directory: %s...", outputDir)
		essentials.Must(dataset.MkdirOutput(outputDir))
	}

	var mirrors []*mirror.Surface
	if !noMirrors {
		log.Println("Loading mirrors...")
		mirrors, err = mirror.ReadSurfacesFile(scene.SurfacePath())
		essentials.Must(err)
		log.Printf("Loaded %d mirrors", len(mirrors))
	}

	log.Println("Loading mesh and textures...")
	mesh, err := ptex.Load(scene.MeshPath(), scene.AtlasDir())
	essentials.Must(err)
	log.Printf("Loaded %d faces", len(mesh.Geometry().Faces))
	mesh.SetExposure(exposure)
	mesh.SetGamma(gamma)
	mesh.SetSaturation(saturation)
	if mesh.Atlas() == nil {
		log.Println("No texture atlas found, using vertex colors.")
	}

	intrinsics := camera.DefaultIntrinsics(width, height)
	path, err := NewCameraGen(&CameraGenArgs{
		Policy:     policy,
		Scene:      scene.Name,
		Intrinsics: intrinsics,
		Step:       step.Value,
		Up:         up.Value,
		RoomsPath:  roomsPath,
		MaxPitch:   maxPitch,
		Seed:       seed,
		SceneMin:   mesh.Min(),
		SceneMax:   mesh.Max(),
	})
	essentials.Must(err)

	log.Println("Writing metadata...")
	global := dataset.NewGlobalMetadata(scene.Name, mesh.Min(), mesh.Max())
	global.Intrinsics = intrinsics
	global.DepthScale = depthScale
	global.NumFrames = numFrames
	global.NumMirrors = len(mirrors)
	essentials.Must(dataset.WriteGlobalMetadata(outputDir, global))

	renderer := &render.Renderer{
		Mesh:       mesh,
		DepthScale: depthScale,
	}
	if len(mirrors) > 0 {
		renderer.Mirrors = mirror.NewRenderer(mirrors, width, height)
	}

	err = dataset.Generate(dataset.Options{
		OutputDir:   outputDir,
		NumFrames:   numFrames,
		JPEGQuality: quality,
		Depth:       renderDepth,
		Metadata:    !noMetadata,
		Progress: func(i, total int) {
			log.Printf("Rendering frame %d/%d...", i+1, total)
		},
	}, renderer, path)
	essentials.Must(err)
	log.Printf("Rendered %d frames.", numFrames)
}
