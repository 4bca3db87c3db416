package compositor

import (
	"testing"

	"github.com/ehrlich-b/multipixel/internal/pixel"
)

func TestHasSessionCompositionFalseIffNoLayer(t *testing.T) {
	c := New()
	if c.HasSessionComposition(1) {
		t.Fatal("fresh compositor reports a composition")
	}
	id := LayerID{Generation: 1, Session: 1}
	c.NewLayer(id)
	if !c.HasSessionComposition(1) {
		t.Fatal("expected session 1 to have a composition")
	}
	if c.HasSessionComposition(2) {
		t.Fatal("session 2 should not have a composition")
	}
	c.RemoveLayer(id)
	if c.HasSessionComposition(1) {
		t.Fatal("expected composition to be gone after RemoveLayer")
	}
}

func TestDereferenceSessionPurgesAllItsLayers(t *testing.T) {
	c := New()
	c.NewLayer(LayerID{Generation: 1, Session: 7})
	c.NewLayer(LayerID{Generation: 2, Session: 7})
	c.NewLayer(LayerID{Generation: 1, Session: 8})

	c.DereferenceSession(7)

	if c.HasSessionComposition(7) {
		t.Fatal("session 7's layers should be gone")
	}
	if !c.HasSessionComposition(8) {
		t.Fatal("session 8's layer should remain")
	}
}

func TestCompositeWithNoLayersReturnsBaseUnchanged(t *testing.T) {
	c := New()
	base := make([]pixel.RGB, pixel.ChunkSizePx*pixel.ChunkSizePx)
	base[0] = pixel.RGB{R: 1, G: 2, B: 3}

	out := c.Composite(base)
	if out[0] != base[0] {
		t.Fatalf("Composite with no layers = %v, want %v", out[0], base[0])
	}
}

func TestCompositeBlendsOverlayAtFullAlpha(t *testing.T) {
	c := New()
	l := c.NewLayer(LayerID{Generation: 1, Session: 1})
	l.Set(0, 0, pixel.RGBA{R: 200, G: 150, B: 100, A: 255})

	base := make([]pixel.RGB, pixel.ChunkSizePx*pixel.ChunkSizePx)
	base[0] = pixel.RGB{R: 1, G: 2, B: 3}

	out := c.Composite(base)
	want := pixel.RGB{R: 200, G: 150, B: 100}
	if out[0] != want {
		t.Errorf("Composite at alpha=255 = %v, want %v", out[0], want)
	}
}

func TestCalcPixelMatchesComposite(t *testing.T) {
	c := New()
	l := c.NewLayer(LayerID{Generation: 1, Session: 1})
	l.Set(3, 4, pixel.RGBA{R: 10, G: 20, B: 30, A: 128})

	base := pixel.RGB{R: 5, G: 5, B: 5}
	full := make([]pixel.RGB, pixel.ChunkSizePx*pixel.ChunkSizePx)
	full[4*pixel.ChunkSizePx+3] = base

	got := c.CalcPixel(base, 3, 4)
	viaComposite := c.Composite(full)[4*pixel.ChunkSizePx+3]
	if got != viaComposite {
		t.Errorf("CalcPixel = %v, Composite = %v, want equal", got, viaComposite)
	}
}

func TestOrderedLayersAreStableByGeneration(t *testing.T) {
	c := New()
	// insert out of generation order
	c.NewLayer(LayerID{Generation: 3, Session: 1}).Set(0, 0, pixel.RGBA{R: 3, A: 255})
	c.NewLayer(LayerID{Generation: 1, Session: 2}).Set(0, 0, pixel.RGBA{R: 1, A: 255})
	c.NewLayer(LayerID{Generation: 2, Session: 3}).Set(0, 0, pixel.RGBA{R: 2, A: 255})

	base := make([]pixel.RGB, pixel.ChunkSizePx*pixel.ChunkSizePx)
	out := c.Composite(base)
	// the highest-generation, fully opaque layer painted last wins.
	if out[0].R != 3 {
		t.Errorf("top layer R = %d, want 3 (last by generation order)", out[0].R)
	}
}
