package dataset

import (
	"github.com/pkg/errors"

	"github.com/roym899/Replica-Dataset/camera"
	"github.com/roym899/Replica-Dataset/render"
)

// Options configures a sequence of rendered frames.
type Options struct {
	// OutputDir is where frames are written. If empty, frames are written
	// to the working directory.
	OutputDir string

	NumFrames   int
	JPEGQuality int

	// Depth enables depth frames.
	Depth bool

	// Metadata enables per-frame camera files.
	Metadata bool

	// Progress, if non-nil, is called before each frame is rendered.
	Progress func(i, total int)
}

// Generate renders every frame of a camera path, saving a color frame and
// optionally a depth frame and camera file for each.
func Generate(opts Options, r *render.Renderer, path camera.Path) error {
	if opts.NumFrames < 0 {
		return errors.Errorf("invalid number of frames: %d", opts.NumFrames)
	}
	quality := opts.JPEGQuality
	if quality == 0 {
		quality = 90
	}
	for i := 0; i < opts.NumFrames; i++ {
		if opts.Progress != nil {
			opts.Progress(i, opts.NumFrames)
		}
		cam := path.Camera(i, opts.NumFrames)

		img := r.RenderColor(cam)
		if err := SaveJPEG(joinOutput(opts.OutputDir, FrameName(i)), img.RGBA(), quality); err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}

		if opts.Depth {
			depth := r.RenderDepth(cam)
			if err := SaveDepth(joinOutput(opts.OutputDir, DepthName(i)), depth); err != nil {
				return errors.Wrapf(err, "frame %d", i)
			}
		}

		if opts.Metadata {
			meta := NewCameraMetadata(cam, depthScale(r))
			if err := WriteJSON(joinOutput(opts.OutputDir, CameraName(i)), meta); err != nil {
				return errors.Wrapf(err, "frame %d", i)
			}
		}
	}
	return nil
}

// WriteGlobalMetadata saves metadata.json into the output directory.
func WriteGlobalMetadata(outputDir string, meta *GlobalMetadata) error {
	return WriteJSON(joinOutput(outputDir, "metadata.json"), meta)
}

func depthScale(r *render.Renderer) float64 {
	if r.DepthScale == 0 {
		return render.DefaultDepthScale
	}
	return r.DepthScale
}
