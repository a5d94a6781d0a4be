package render

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log"
	"math"

	// Decoders for the formats step photos arrive in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jung-kurt/gofpdf"

	"maintlog-backend/internal/store"
)

// Page geometry, A4 in points.
const (
	pageWidth  = 595.0
	pageHeight = 842.0
	marginX    = 40.0
	topOffset  = 50.0

	imageMaxWidth  = pageWidth - 2*marginX
	imageMaxHeight = 200.0
)

// Renderer lays out a report header and its step sequence across fixed-size
// PDF pages. Image resolution happens sequentially per step; a slow or
// failing fetch for one step never aborts the rest of the document.
type Renderer struct {
	resolver ImageResolver
}

// New creates a Renderer that resolves step photos through the given
// resolver.
func New(resolver ImageResolver) *Renderer {
	return &Renderer{resolver: resolver}
}

// FileName derives the deterministic artifact name from the report's
// grouping key.
func FileName(header store.ReportHeader) string {
	return fmt.Sprintf("REPORT_%s_%s.pdf", header.InventoryCode, header.ActionType)
}

// Render produces the finished multi-page PDF for a report.
func (r *Renderer) Render(header store.ReportHeader, steps []store.StepEntry) ([]byte, error) {
	doc := r.layout(header, steps)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) layout(header store.ReportHeader, steps []store.StepEntry) *gofpdf.Fpdf {
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	// The pagination checks below own the page breaks.
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()
	y := topOffset

	doc.SetFont("Helvetica", "B", 24)
	doc.Text(marginX, y, "MAINTENANCE PROCEDURE REPORT")
	y += 40

	doc.SetFont("Helvetica", "", 16)
	doc.Text(marginX, y, fmt.Sprintf("Component: %s (%s)", header.ComponentName, header.InventoryCode))
	y += 20
	doc.Text(marginX, y, "Action: "+header.ActionType)
	y += 20
	doc.Text(marginX, y, fmt.Sprintf("Technician: %s (%s)", header.Technician, header.WorkshopName))
	y += 20
	doc.Text(marginX, y, "Date: "+header.LoggedAt.Format("2006-01-02"))
	y += 40

	doc.SetFont("Helvetica", "B", 20)
	doc.Text(marginX, y, "STEP SEQUENCE")
	y += 30

	if len(steps) == 0 {
		doc.SetFont("Helvetica", "", 12)
		doc.Text(marginX, y, "No steps recorded for this report.")
		return doc
	}

	for i, step := range steps {
		// Coarse pre-check: reserve room for the step text plus a
		// worst-case image before committing to this page.
		if y > pageHeight-(imageMaxHeight+100) {
			doc.AddPage()
			y = topOffset
		}

		doc.SetFont("Helvetica", "BI", 14)
		doc.Text(marginX, y, fmt.Sprintf("STEP %d:", step.StepNumber))
		y += 18

		doc.SetFont("Helvetica", "", 12)
		desc := step.Description
		if desc == "" {
			desc = "no description recorded"
		}
		doc.Text(marginX, y, "Description: "+desc)
		y += 15

		if step.PhotoRef != "" {
			y = r.drawPhoto(doc, step, i, y)
		} else {
			doc.Text(marginX, y, "Photo attached: no")
			y += 15
		}

		y += 20
	}
	return doc
}

// drawPhoto scales and places one step photo, starting a new page first if
// the scaled image does not fit. Resolution or decoding failure degrades to
// an inline error line.
func (r *Renderer) drawPhoto(doc *gofpdf.Fpdf, step store.StepEntry, index int, y float64) float64 {
	img, err := r.loadImage(step.PhotoRef)
	if err != nil {
		log.Printf("step %d: could not load photo %q: %v", step.StepNumber, step.PhotoRef, err)
		doc.Text(marginX, y, "Could not load photo: "+err.Error())
		return y + 15
	}

	w, h := scaleToFit(img.width, img.height, imageMaxWidth, imageMaxHeight)

	// Second, precise check now that the scaled height is known.
	if y+h+30 > pageHeight {
		doc.AddPage()
		y = topOffset
	}

	name := fmt.Sprintf("step-%d-%d", step.StepID, index)
	opts := gofpdf.ImageOptions{ImageType: img.format}
	doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.data))
	doc.ImageOptions(name, marginX, y, w, h, false, opts, 0, "")
	return y + h + 10
}

type loadedImage struct {
	data   []byte
	format string
	width  float64
	height float64
}

func (r *Renderer) loadImage(ref string) (*loadedImage, error) {
	rc, err := r.resolver.Resolve(ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("decode %s: empty image", ref)
	}
	return &loadedImage{
		data:   data,
		format: format,
		width:  float64(cfg.Width),
		height: float64(cfg.Height),
	}, nil
}

// scaleToFit uniformly scales (w, h) into (maxW, maxH), preserving aspect
// ratio.
func scaleToFit(w, h, maxW, maxH float64) (float64, float64) {
	scale := math.Min(maxW/w, maxH/h)
	return w * scale, h * scale
}
