package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/engine"
)

func testScene() document.Scene {
	s := document.NewScene(200, 100)
	s.Shapes = []document.Shape{{
		ID:       "box",
		X:        10,
		Y:        10,
		Geometry: document.Rectangle{Width: 100, Height: 50},
		Style:    document.Style{Stroke: "#000000", Fill: "#ff0000", StrokeWidth: 2},
	}, {
		ID:       "label",
		X:        20,
		Y:        70,
		Geometry: document.Text{Content: "Submit"},
	}}
	s.Strokes = []document.Stroke{{ID: "line", Tool: document.StrokePen, Points: []float64{0, 90, 190, 90}, Color: "#0000ff", Width: 4}}
	return s
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in         string
		ok         bool
		r, g, b, a uint8
	}{
		{"#ff0000", true, 255, 0, 0, 255},
		{"#0f0", true, 0, 255, 0, 255},
		{"#0000ff80", true, 0, 0, 255, 128},
		{"rgba(46, 46, 46, 0.3)", true, 46, 46, 46, 77},
		{"rgb(1,2,3)", true, 1, 2, 3, 255},
		{"Black", true, 0, 0, 0, 255},
		{"transparent", false, 0, 0, 0, 0},
		{"", false, 0, 0, 0, 0},
		{"#zzzzzz", false, 0, 0, 0, 0},
		{"hsl(0, 0%, 0%)", false, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		p, ok := ParseColor(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseColor(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		r, g, b, a := p.RGBA255()
		if r != tt.r || g != tt.g || b != tt.b || a != tt.a {
			t.Errorf("ParseColor(%q) = %d,%d,%d,%d, want %d,%d,%d,%d", tt.in, r, g, b, a, tt.r, tt.g, tt.b, tt.a)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"PNG": FormatPNG, "jpg": FormatJPEG, "image/svg+xml": FormatSVG, "pdf": FormatPDF} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("gif"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(gif) error = %v, want ErrUnknownFormat", err)
	}
}

func TestRasterPaintsShapes(t *testing.T) {
	scene := testScene()
	cmds := engine.CompileDrawCommands(scene, engine.RenderOptions{})
	img := NewRasterizer(1).Paint(cmds, scene.Width, scene.Height).Image()

	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("image size = %dx%d, want 200x100", b.Dx(), b.Dy())
	}
	if r, g, b, _ := img.At(50, 30).RGBA(); r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("inside rect = %d,%d,%d, want red", r>>8, g>>8, b>>8)
	}
	if r, g, b, _ := img.At(150, 40).RGBA(); r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("background = %d,%d,%d, want white", r>>8, g>>8, b>>8)
	}
	if _, _, b, _ := img.At(100, 90).RGBA(); b>>8 < 200 {
		t.Errorf("stroke pixel blue = %d, want blue", b>>8)
	}
}

func TestRenderFormats(t *testing.T) {
	scene := testScene()
	for _, f := range []Format{FormatPNG, FormatJPEG, FormatSVG, FormatPDF} {
		var buf bytes.Buffer
		if err := Render(&buf, scene, f, Options{Grid: true}); err != nil {
			t.Fatalf("Render(%s) error = %v", f, err)
		}
		out := buf.Bytes()
		switch f {
		case FormatPNG:
			img, err := png.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("png.Decode() error = %v", err)
			}
			if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
				t.Errorf("png size = %dx%d, want 400x200 at pixel ratio 2", b.Dx(), b.Dy())
			}
		case FormatJPEG:
			if !bytes.HasPrefix(out, []byte{0xFF, 0xD8}) {
				t.Error("jpeg output lacks SOI marker")
			}
		case FormatSVG:
			s := string(out)
			if !strings.Contains(s, "<svg") || !strings.Contains(s, "fill:#ff0000") || !strings.Contains(s, ">Submit<") {
				t.Errorf("svg output missing content:\n%s", s)
			}
		case FormatPDF:
			if !bytes.HasPrefix(out, []byte("%PDF")) {
				t.Error("pdf output lacks header")
			}
		}
	}
}

func TestEngineExportRaster(t *testing.T) {
	e := engine.New(engine.WithRasterizer(NewRasterizer(1)))
	e.Load(testScene())
	url, err := e.ExportRaster("image/png", 1)
	if err != nil {
		t.Fatalf("ExportRaster() error = %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("ExportRaster() = %.40q", url)
	}
}

func newRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/export/{format}", NewHandler(1).Export).Methods("POST")
	return r
}

func TestHandlerExport(t *testing.T) {
	sceneJSON, err := json.Marshal(testScene())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	body, _ := json.Marshal(map[string]any{"scene": json.RawMessage(sceneJSON), "name": "my sketch!"})

	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest("POST", "/export/svg", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="my-sketch-.svg"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestHandlerDataURL(t *testing.T) {
	body := `{"scene":{"strokes":[],"shapes":[],"width":50,"height":50},"dataUrl":true}`
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest("POST", "/export/jpeg", strings.NewReader(body)))

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !strings.HasPrefix(resp["dataUrl"], "data:image/jpeg;base64,") {
		t.Errorf("dataUrl = %.40q", resp["dataUrl"])
	}
}

func TestHandlerRejectsBadInput(t *testing.T) {
	tests := []struct {
		path, body string
	}{
		{"/export/gif", `{"scene":{}}`},
		{"/export/png", `not json`},
		{"/export/png", `{"scene":{"shapes":[{"id":"x","type":"hexagon"}]}}`},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		newRouter().ServeHTTP(rec, httptest.NewRequest("POST", tt.path, strings.NewReader(tt.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s %s: status = %d, want 400", tt.path, tt.body, rec.Code)
		}
	}
}
