// Command genassets populates a region's provider and chart archives
// with synthetic imagery so the pipeline can be exercised locally
// without hitting upstream services. Frames are flat-shaded full-disk
// placeholders whose hue drifts with time; charts are white fields with
// the black linework color the compositor keys on.
//
// Usage:
//
//	genassets -region pacific -start 201812240300 -hours 24
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/halcyon-wx/frameline/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	region := flag.String("region", "pacific", "region name used in filenames")
	root := flag.String("root", "data", "data root to generate under")
	satellite := flag.String("satellite", "goes-17", "satellite key used in filenames")
	resolution := flag.String("resolution", "2km", "resolution key used in filenames")
	startArg := flag.String("start", "", "first frame timestamp, YYYYMMDDHHMM")
	hours := flag.Int("hours", 24, "span of synthetic history to generate")
	tileEvery := flag.Duration("tile-every", 20*time.Minute, "tile composite cadence")
	cdnEvery := flag.Duration("cdn-every", time.Hour, "cdn asset cadence")
	size := flag.Int("size", 512, "synthetic frame edge length in pixels")
	flag.Parse()

	if *startArg == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -start")
	}
	start, err := domain.ParseTimestamp(*startArg)
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
	}
	end := domain.TimestampOf(start.Time().Add(time.Duration(*hours) * time.Hour))

	base := filepath.Join(*root, *region)

	var tiles, cdn int
	for ts := start; !ts.After(end); ts = domain.TimestampOf(ts.Time().Add(*tileEvery)) {
		name := fmt.Sprintf("%s_%s_full_%s00.png", *satellite, *resolution, ts)
		if err := writeImage(filepath.Join(base, "tiles", ts.DateKey(), name), frameImage(ts, *size), "png"); err != nil {
			return err
		}
		tiles++
	}
	for ts := start; !ts.After(end); ts = domain.TimestampOf(ts.Time().Add(*cdnEvery)) {
		name := fmt.Sprintf("%s_%s_full_%s.jpg", *satellite, *resolution, ts)
		if err := writeImage(filepath.Join(base, "cdn", ts.DateKey(), name), frameImage(ts, *size), "jpg"); err != nil {
			return err
		}
		cdn++
	}

	var charts int
	for ts := start.TruncateSynoptic(6 * time.Hour); !ts.After(end); ts = domain.TimestampOf(ts.Time().Add(6 * time.Hour)) {
		if ts.Before(start) {
			continue
		}
		if err := writeImage(filepath.Join(base, "charts", ts.String()+".png"), chartImage(*size), "png"); err != nil {
			return err
		}
		charts++
	}

	log.Printf("wrote %d tile composites, %d cdn assets, %d charts under %s", tiles, cdn, charts, base)
	return nil
}

// frameImage returns a flat-shaded placeholder whose color tracks the
// timestamp, so adjacent frames are visually distinct in a time-lapse.
func frameImage(ts domain.Timestamp, size int) image.Image {
	minute := ts.Time().Hour()*60 + ts.Time().Minute()
	shade := color.NRGBA{
		R: uint8(40 + minute%160),
		G: uint8(60 + (minute/3)%120),
		B: 160,
		A: 255,
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, shade)
		}
	}
	return img
}

// chartImage returns a white field with a black diagonal, matching the
// white-background linework the compositor's chart preparation expects.
func chartImage(size int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	for i := 0; i < size; i++ {
		img.SetNRGBA(i, i, color.NRGBA{0, 0, 0, 255})
	}
	return img
}

func writeImage(path string, img image.Image, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
