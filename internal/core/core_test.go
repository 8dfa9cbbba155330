package core

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"
)

func TestNewGrid(t *testing.T) {
	for _, tt := range []struct{ w, h int }{{0, 4}, {4, 0}, {-1, 3}} {
		if _, err := NewGrid(tt.w, tt.h); !errors.Is(err, ErrInvalidGrid) {
			t.Errorf("NewGrid(%d, %d) = %v, want ErrInvalidGrid", tt.w, tt.h, err)
		}
	}
	g, err := NewGrid(5, 3)
	if err != nil {
		t.Fatal(err)
	}
	if g.Cells() != 15 || g.String() != "5x3" {
		t.Fatalf("grid %s with %d cells", g, g.Cells())
	}
}

func TestGridWrapAndIndex(t *testing.T) {
	g := Grid{W: 5, H: 3}
	tests := []struct {
		x, y   int
		wx, wy int
	}{
		{-1, -1, 4, 2},
		{5, 3, 0, 0},
		{7, -4, 2, 2},
		{2, 1, 2, 1},
	}
	for _, tt := range tests {
		x, y := g.Wrap(tt.x, tt.y)
		if x != tt.wx || y != tt.wy {
			t.Errorf("Wrap(%d, %d) = (%d, %d), want (%d, %d)", tt.x, tt.y, x, y, tt.wx, tt.wy)
		}
		if i := g.Index(tt.x, tt.y); i != tt.wy*g.W+tt.wx {
			t.Errorf("Index(%d, %d) = %d", tt.x, tt.y, i)
		}
	}
	if x, y := g.Coord(13); x != 3 || y != 2 {
		t.Fatalf("Coord(13) = (%d, %d)", x, y)
	}
}

func TestGridStateCommitSwapsRoles(t *testing.T) {
	if _, err := NewGridState(Grid{}); !errors.Is(err, ErrInvalidGrid) {
		t.Fatalf("got %v, want ErrInvalidGrid", err)
	}
	s, err := NewGridState(Grid{W: 4, H: 2})
	if err != nil {
		t.Fatal(err)
	}
	s.SlotBuffer(0)[0] = 1
	s.SlotBuffer(1)[1] = 1

	for n := 0; n < 5; n++ {
		if s.Generation() != uint64(n) || s.Parity() != n%2 {
			t.Fatalf("generation %d parity %d, want %d/%d", s.Generation(), s.Parity(), n, n%2)
		}
		if s.Slot(RoleCurrent) == s.Slot(RoleScratch) {
			t.Fatal("current and scratch share a slot")
		}
		if &s.Current()[0] != &s.SlotBuffer(n%2)[0] || &s.Scratch()[0] != &s.SlotBuffer((n+1)%2)[0] {
			t.Fatalf("generation %d: role table does not follow parity", n)
		}
		if &s.CurrentBuffer(s.Parity())[0] != &s.Current()[0] || &s.ScratchBuffer(s.Parity())[0] != &s.Scratch()[0] {
			t.Fatal("parity accessors disagree with role accessors")
		}
		s.Commit()
	}
	if w, h := s.Dimensions(); w != 4 || h != 2 {
		t.Fatalf("dimensions %dx%d", w, h)
	}
	if RoleCurrent.String() != "current" || RoleScratch.String() != "scratch" {
		t.Fatal("role names")
	}
}

func TestCellState(t *testing.T) {
	c := NewCellState(Grid{W: 3, H: 2})
	c[1], c[4] = 1, 1
	if c.Population() != 2 || !c.Alive(4) || c.Alive(0) {
		t.Fatalf("population %d", c.Population())
	}
	clone := c.Clone()
	c.Clear()
	if c.Population() != 0 || clone.Population() != 2 {
		t.Fatal("Clone shares storage with the original")
	}
}

func TestFixedStep(t *testing.T) {
	if _, err := NewFixedStep(0); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("got %v, want ErrInvalidInterval", err)
	}
	fs, err := NewFixedStep(100 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(0, 0)
	fs.now = func() time.Time { return now }

	if !fs.ShouldStep() {
		t.Fatal("first call must step immediately")
	}
	now = now.Add(40 * time.Millisecond)
	if fs.ShouldStep() {
		t.Fatal("stepped before the interval elapsed")
	}
	now = now.Add(60 * time.Millisecond)
	if !fs.ShouldStep() {
		t.Fatal("did not step after the interval")
	}

	// A long stall yields one step now and at most one catch-up step.
	now = now.Add(time.Second)
	steps := 0
	for i := 0; i < 5; i++ {
		if fs.ShouldStep() {
			steps++
		}
	}
	if steps != 2 {
		t.Fatalf("stall produced %d steps, want 2", steps)
	}

	if err := fs.SetInterval(-time.Second); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("got %v, want ErrInvalidInterval", err)
	}
	if fs.Interval() != 100*time.Millisecond {
		t.Fatal("rejected interval replaced the old one")
	}
}

func TestNewTicker(t *testing.T) {
	if _, err := NewTicker(0); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("got %v, want ErrInvalidInterval", err)
	}
	tk, err := NewTicker(time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(5 * time.Second):
		t.Fatal("ticker never fired")
	}
}

func TestRNGDeterministic(t *testing.T) {
	g := Grid{W: 16, H: 16}
	a, b := NewCellState(g), NewCellState(g)
	NewRNG(3).FillChance(a, 0.4)
	NewRNG(3).FillChance(b, 0.4)
	if !slices.Equal(a, b) {
		t.Fatal("same seed produced different fills")
	}
	NewRNG(3).FillChance(b, 0)
	if b.Population() != 0 {
		t.Fatal("zero probability produced live cells")
	}
	NewRNG(3).FillChance(b, 1)
	if b.Population() != g.Cells() {
		t.Fatal("probability one left dead cells")
	}
}

func TestParameterSnapshot(t *testing.T) {
	s := ParameterSnapshot{Groups: []ParameterGroup{
		{Name: "Grid", Params: []Parameter{{Key: "w", Value: "8"}, {Key: "h", Value: "4"}}},
		{Name: "Loop", Params: []Parameter{{Key: "engine", Value: "gpu"}}},
	}}
	if p, ok := s.Lookup("engine"); !ok || p.Value != "gpu" {
		t.Fatalf("Lookup(engine) = %v, %v", p, ok)
	}
	if _, ok := s.Lookup("missing"); ok {
		t.Fatal("found a missing key")
	}
	if got, want := s.String(), "Grid: w=8 h=4\nLoop: engine=gpu\n"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	Logger().Info("hello", "k", 1)
	if !bytes.Contains(buf.Bytes(), []byte("k=1")) {
		t.Fatalf("log output %q", buf.String())
	}
	SetLogger(nil)
	Logger().Info("dropped")
	if bytes.Contains(buf.Bytes(), []byte("dropped")) {
		t.Fatal("nil logger did not restore the silent default")
	}
}
