package clmm

import "testing"

func TestBitmapFlipAndQuery(t *testing.T) {
	b := NewTickBitmap()
	if b.IsInitialized(120, 60) {
		t.Fatal("fresh bitmap reports initialized tick")
	}
	b.Flip(120, 60)
	if !b.IsInitialized(120, 60) {
		t.Fatal("tick not initialized after flip")
	}
	b.Flip(120, 60)
	if b.IsInitialized(120, 60) {
		t.Fatal("tick still initialized after second flip")
	}
	if len(b.words) != 0 {
		t.Fatalf("empty word kept in map: %v", b.words)
	}
}

func TestBitmapNextInitializedLTE(t *testing.T) {
	b := NewTickBitmap()
	b.Flip(-600, 60)
	b.Flip(600, 60)

	next, found := b.NextInitialized(0, 60, true)
	if !found || next != -600 {
		t.Fatalf("lte from 0: got (%d, %v), want (-600, true)", next, found)
	}

	// Inclusive at the current tick.
	next, found = b.NextInitialized(600, 60, true)
	if !found || next != 600 {
		t.Fatalf("lte from 600: got (%d, %v), want (600, true)", next, found)
	}

	// Unaligned start resolves through the compressed floor.
	next, found = b.NextInitialized(659, 60, true)
	if !found || next != 600 {
		t.Fatalf("lte from 659: got (%d, %v), want (600, true)", next, found)
	}

	next, found = b.NextInitialized(-601, 60, true)
	if found || next != MIN_TICK {
		t.Fatalf("lte below lowest: got (%d, %v), want (%d, false)", next, found, MIN_TICK)
	}
}

func TestBitmapNextInitializedGT(t *testing.T) {
	b := NewTickBitmap()
	b.Flip(-600, 60)
	b.Flip(600, 60)

	next, found := b.NextInitialized(0, 60, false)
	if !found || next != 600 {
		t.Fatalf("gt from 0: got (%d, %v), want (600, true)", next, found)
	}

	// Strictly above: starting exactly on an initialized tick skips it.
	next, found = b.NextInitialized(-600, 60, false)
	if !found || next != 600 {
		t.Fatalf("gt from -600: got (%d, %v), want (600, true)", next, found)
	}

	next, found = b.NextInitialized(600, 60, false)
	if found || next != MAX_TICK {
		t.Fatalf("gt above highest: got (%d, %v), want (%d, false)", next, found, MAX_TICK)
	}
}

func TestBitmapScanAcrossWords(t *testing.T) {
	// 60 * 64 ticks per word; these land many words apart.
	b := NewTickBitmap()
	b.Flip(-60000, 60)
	b.Flip(60000, 60)

	next, found := b.NextInitialized(0, 60, true)
	if !found || next != -60000 {
		t.Fatalf("lte across words: got (%d, %v)", next, found)
	}
	next, found = b.NextInitialized(0, 60, false)
	if !found || next != 60000 {
		t.Fatalf("gt across words: got (%d, %v)", next, found)
	}
}

func TestBitmapSpacingOne(t *testing.T) {
	b := NewTickBitmap()
	b.Flip(-1, 1)
	b.Flip(63, 1)
	b.Flip(64, 1)

	next, found := b.NextInitialized(63, 1, false)
	if !found || next != 64 {
		t.Fatalf("gt over word boundary: got (%d, %v)", next, found)
	}
	next, found = b.NextInitialized(0, 1, true)
	if !found || next != -1 {
		t.Fatalf("lte over word boundary: got (%d, %v)", next, found)
	}
	next, found = b.NextInitialized(63, 1, true)
	if !found || next != 63 {
		t.Fatalf("lte at bit 63: got (%d, %v)", next, found)
	}
}

func TestBitmapClone(t *testing.T) {
	b := NewTickBitmap()
	b.Flip(600, 60)
	c := b.Clone()
	c.Flip(600, 60)
	if !b.IsInitialized(600, 60) {
		t.Fatal("clone flip leaked into the original")
	}
}
