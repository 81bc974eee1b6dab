package imaging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// Exif is the subset of image metadata shown next to a preview.
type Exif struct {
	CameraMake  string
	CameraModel string

	// DateTaken prefers DateTimeOriginal, then CreateDate, then ModifyDate.
	DateTaken time.Time
	HasDate   bool

	Latitude  float64
	Longitude float64
	HasGPS    bool
}

// ReadExif extracts EXIF metadata. Screenshots usually carry none, in which
// case the decoder's error is returned and callers show no summary.
func ReadExif(path string) (*Exif, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	meta := &Exif{
		CameraMake:  strings.TrimSpace(exifData.Make),
		CameraModel: strings.TrimSpace(exifData.Model),
	}

	switch {
	case !exifData.DateTimeOriginal().IsZero():
		meta.DateTaken, meta.HasDate = exifData.DateTimeOriginal(), true
	case !exifData.CreateDate().IsZero():
		meta.DateTaken, meta.HasDate = exifData.CreateDate(), true
	case !exifData.ModifyDate().IsZero():
		meta.DateTaken, meta.HasDate = exifData.ModifyDate(), true
	}

	if lat, lon := exifData.GPS.Latitude(), exifData.GPS.Longitude(); lat != 0 || lon != 0 {
		meta.Latitude, meta.Longitude, meta.HasGPS = lat, lon, true
	}

	log.Debug().
		Str("path", path).
		Bool("has_gps", meta.HasGPS).
		Bool("has_date", meta.HasDate).
		Msg("EXIF metadata read")

	return meta, nil
}

// Summary renders a one-line description, or "" when nothing is known.
func (e *Exif) Summary() string {
	if e == nil {
		return ""
	}
	var parts []string
	if camera := strings.TrimSpace(e.CameraMake + " " + e.CameraModel); camera != "" {
		parts = append(parts, camera)
	}
	if e.HasDate {
		parts = append(parts, e.DateTaken.Format("Jan 2, 2006 3:04 PM"))
	}
	if e.HasGPS {
		parts = append(parts, fmt.Sprintf("%.4f, %.4f", e.Latitude, e.Longitude))
	}
	return strings.Join(parts, " · ")
}
