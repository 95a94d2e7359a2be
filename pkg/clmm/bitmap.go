package clmm

import (
	"math/bits"
)

// TickBitmap is a sparse two-level index over the compressed tick space:
// word index -> 64-bit word, where bit b of word w marks compressed tick
// w*64+b as initialized. Empty words are absent from the map, so storage is
// proportional to the number of initialized ticks, and directional scans
// skip whole words at a time.
type TickBitmap struct {
	words map[int32]uint64
}

func NewTickBitmap() *TickBitmap {
	return &TickBitmap{words: make(map[int32]uint64)}
}

// Clone returns an independent copy.
func (b *TickBitmap) Clone() *TickBitmap {
	words := make(map[int32]uint64, len(b.words))
	for w, v := range b.words {
		words[w] = v
	}
	return &TickBitmap{words: words}
}

func wordAndBit(compressed int32) (int32, uint) {
	word := floorDiv(compressed, BITMAP_WORD_BITS)
	bit := uint(compressed - word*BITMAP_WORD_BITS)
	return word, bit
}

// Flip toggles the initialized bit for a spacing-aligned tick.
func (b *TickBitmap) Flip(tick, spacing int32) {
	compressed := floorDiv(tick, spacing)
	word, bit := wordAndBit(compressed)
	b.words[word] ^= 1 << bit
	if b.words[word] == 0 {
		delete(b.words, word)
	}
}

// IsInitialized reports whether the tick's bit is set.
func (b *TickBitmap) IsInitialized(tick, spacing int32) bool {
	compressed := floorDiv(tick, spacing)
	word, bit := wordAndBit(compressed)
	return b.words[word]&(1<<bit) != 0
}

// NextInitialized returns the nearest initialized tick at or below tick
// (lte=true) or strictly above it (lte=false). When no initialized tick
// exists in that direction it returns the tick-space boundary with
// found=false, so the swap loop can run to exhaustion.
func (b *TickBitmap) NextInitialized(tick, spacing int32, lte bool) (next int32, found bool) {
	if lte {
		compressed := floorDiv(tick, spacing)
		word, bit := wordAndBit(compressed)
		minWord, _ := wordAndBit(floorDiv(MIN_TICK, spacing))

		// Bits at or below the current position in this word.
		mask := uint64(1)<<(bit+1) - 1
		if bit == 63 {
			mask = ^uint64(0)
		}
		for w := word; w >= minWord; w-- {
			v := b.words[w]
			if w == word {
				v &= mask
			}
			if v != 0 {
				msb := int32(bits.Len64(v) - 1)
				return (w*BITMAP_WORD_BITS + msb) * spacing, true
			}
		}
		return MIN_TICK, false
	}

	compressed := floorDiv(tick, spacing) + 1
	word, bit := wordAndBit(compressed)
	maxWord, _ := wordAndBit(floorDiv(MAX_TICK, spacing))

	// Bits at or above the current position in this word.
	mask := ^(uint64(1)<<bit - 1)
	for w := word; w <= maxWord; w++ {
		v := b.words[w]
		if w == word {
			v &= mask
		}
		if v != 0 {
			lsb := int32(bits.TrailingZeros64(v))
			return (w*BITMAP_WORD_BITS + lsb) * spacing, true
		}
	}
	return MAX_TICK, false
}
