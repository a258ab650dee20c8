package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rdallagnolo/repo-fad-tracking/internal/fsutil"
	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
)

// Artifact names
const (
	LatestKMLFile = "latest_positions.kml"
	TracksKMLFile = "tracks.kml"
)

const (
	styleInside  = "redPin"
	styleOutside = "defPin"
)

// kmlWriter stops writing after the first error and reports it at the end.
type kmlWriter struct {
	w   io.Writer
	err error
}

func (k *kmlWriter) printf(format string, args ...any) {
	if k.err != nil {
		return
	}
	_, k.err = fmt.Fprintf(k.w, format, args...)
}

func (k *kmlWriter) header(name string) {
	k.printf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	k.printf("<kml xmlns=\"http://www.opengis.net/kml/2.2\">\n")
	k.printf("<Document>\n")
	k.printf("  <name>%s</name>\n", xmlEscape(name))
}

func (k *kmlWriter) footer() {
	k.printf("</Document>\n")
	k.printf("</kml>\n")
}

func coordinate(f models.Fix) string {
	return formatFloat(f.Longitude) + "," + formatFloat(f.Latitude) + ",0"
}

// LatestKML writes one pin per active buoy at its latest fix. The pin style
// depends only on that fix's zone membership.
type LatestKML struct{}

func (LatestKML) Name() string        { return "latest positions markers" }
func (LatestKML) Artifacts() []string { return []string{LatestKMLFile} }

func (LatestKML) Emit(ctx context.Context, dir string, ds *Dataset) error {
	err := fsutil.WriteFileAtomic(filepath.Join(dir, LatestKMLFile), func(w io.Writer) error {
		k := &kmlWriter{w: w}
		k.header("Latest FAD Positions")
		k.printf("  <Style id=\"%s\"><IconStyle><scale>1.1</scale><Icon><href>http://maps.google.com/mapfiles/kml/pushpin/red-pushpin.png</href></Icon></IconStyle></Style>\n", styleInside)
		k.printf("  <Style id=\"%s\"><IconStyle><scale>1.0</scale><Icon><href>http://maps.google.com/mapfiles/kml/pushpin/ylw-pushpin.png</href></Icon></IconStyle></Style>\n", styleOutside)

		for _, s := range ds.Activity.Active {
			style := styleOutside
			if s.InAnyZone() {
				style = styleInside
			}
			k.printf("  <Placemark>\n")
			k.printf("    <name>%s</name>\n", xmlEscape(s.BuoyID))
			k.printf("    <styleUrl>#%s</styleUrl>\n", style)
			k.printf("    <description>%s</description>\n", xmlEscape(markerDescription(s.Latest)))
			k.printf("    <Point><coordinates>%s</coordinates></Point>\n", coordinate(s.Latest))
			k.printf("  </Placemark>\n")
		}
		k.footer()
		return k.err
	})
	if err != nil {
		return &OutputWriteError{Artifact: LatestKMLFile, Err: err}
	}
	return nil
}

func markerDescription(f models.Fix) string {
	var b strings.Builder
	fmt.Fprintf(&b, "timestamp: %s\n", formatTime(f.Timestamp))
	if f.SpeedKn != nil {
		fmt.Fprintf(&b, "speed_kn: %s\n", formatFloat(*f.SpeedKn))
	}
	if f.CourseDeg != nil {
		fmt.Fprintf(&b, "course_deg: %s\n", formatFloat(*f.CourseDeg))
	}
	return b.String()
}

// TracksKML writes one line per active buoy in ascending time. A buoy with a
// single fix gets a point placemark instead.
type TracksKML struct{}

func (TracksKML) Name() string        { return "track lines" }
func (TracksKML) Artifacts() []string { return []string{TracksKMLFile} }

func (TracksKML) Emit(ctx context.Context, dir string, ds *Dataset) error {
	err := fsutil.WriteFileAtomic(filepath.Join(dir, TracksKMLFile), func(w io.Writer) error {
		k := &kmlWriter{w: w}
		k.header("FAD Tracks")
		for _, tr := range ds.Activity.Tracks {
			if len(tr.Fixes) == 0 {
				continue
			}
			k.printf("  <Placemark>\n")
			k.printf("    <name>%s</name>\n", xmlEscape(tr.BuoyID))
			k.printf("    <TimeSpan><begin>%s</begin><end>%s</end></TimeSpan>\n", formatTime(tr.Start()), formatTime(tr.End()))
			if tr.Degenerate() {
				k.printf("    <Point><coordinates>%s</coordinates></Point>\n", coordinate(tr.Fixes[0]))
			} else {
				k.printf("    <LineString>\n")
				k.printf("      <tessellate>1</tessellate>\n")
				k.printf("      <coordinates>\n")
				for _, f := range tr.Fixes {
					k.printf("        %s\n", coordinate(f))
				}
				k.printf("      </coordinates>\n")
				k.printf("    </LineString>\n")
			}
			k.printf("  </Placemark>\n")
		}
		k.footer()
		return k.err
	})
	if err != nil {
		return &OutputWriteError{Artifact: TracksKMLFile, Err: err}
	}
	return nil
}

// xmlEscape escapes a string for XML text nodes.
func xmlEscape(s string) string {
	var b bytes.Buffer
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
