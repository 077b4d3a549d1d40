package tile

import (
	"errors"
	"testing"
)

func TestTileDropPartialCount(t *testing.T) {
	tests := []struct {
		rows, cols, size int
	}{
		{4, 4, 2},
		{5, 7, 2},
		{10, 3, 3},
		{9, 9, 4},
		{3, 3, 5},
		{1, 8, 1},
	}

	for _, tt := range tests {
		tiling, err := Tile(tt.rows, tt.cols, tt.size, DropPartial)
		if err != nil {
			t.Fatalf("Tile(%d,%d,%d) failed: %v", tt.rows, tt.cols, tt.size, err)
		}
		want := (tt.rows / tt.size) * (tt.cols / tt.size)
		if tiling.Len() != want {
			t.Errorf("Tile(%d,%d,%d): expected %d blocks, got %d", tt.rows, tt.cols, tt.size, want, tiling.Len())
		}
		for _, b := range tiling.Blocks {
			if !b.Full(tt.size) {
				t.Errorf("Drop-partial tiling produced partial %s", b)
			}
		}
	}
}

func TestTileKeepPartialPartitions(t *testing.T) {
	tests := []struct {
		rows, cols, size int
	}{
		{4, 4, 2},
		{5, 7, 2},
		{10, 3, 4},
		{3, 3, 5},
		{6, 1, 4},
	}

	for _, tt := range tests {
		tiling, err := Tile(tt.rows, tt.cols, tt.size, KeepPartial)
		if err != nil {
			t.Fatalf("Tile failed: %v", err)
		}

		covered := make([]int, tt.rows*tt.cols)
		for _, b := range tiling.Blocks {
			for r := b.Row; r < b.Row+b.Rows; r++ {
				for c := b.Col; c < b.Col+b.Cols; c++ {
					covered[r*tt.cols+c]++
				}
			}
		}
		for i, n := range covered {
			if n != 1 {
				t.Fatalf("%dx%d size %d: cell %d covered %d times", tt.rows, tt.cols, tt.size, i, n)
			}
		}
	}
}

func TestTileRowMajorOrder(t *testing.T) {
	tiling, _ := Tile(4, 6, 2, DropPartial)

	want := []Block{
		{0, 0, 2, 2}, {0, 2, 2, 2}, {0, 4, 2, 2},
		{2, 0, 2, 2}, {2, 2, 2, 2}, {2, 4, 2, 2},
	}
	if len(tiling.Blocks) != len(want) {
		t.Fatalf("Expected %d blocks, got %d", len(want), len(tiling.Blocks))
	}
	for i := range want {
		if tiling.Blocks[i] != want[i] {
			t.Errorf("Block %d: expected %v, got %v", i, want[i], tiling.Blocks[i])
		}
	}
}

func TestPositionUsesTilingColumns(t *testing.T) {
	// 5 columns with size 2: drop-partial has 2 block columns, keep-partial 3.
	drop, _ := Tile(4, 5, 2, DropPartial)
	keep, _ := Tile(4, 5, 2, KeepPartial)

	if drop.BlockCols != 2 || keep.BlockCols != 3 {
		t.Fatalf("Expected block columns 2 and 3, got %d and %d", drop.BlockCols, keep.BlockCols)
	}

	for _, tiling := range []Tiling{drop, keep} {
		for i, b := range tiling.Blocks {
			r, c := tiling.Position(i)
			if r != b.Row || c != b.Col {
				t.Errorf("%s: index %d mapped to (%d,%d), block at (%d,%d)", tiling.Mode, i, r, c, b.Row, b.Col)
			}
		}
	}
}

func TestKeepPartialEdgeExtent(t *testing.T) {
	tiling, _ := Tile(5, 5, 2, KeepPartial)
	last := tiling.Blocks[tiling.Len()-1]
	if last.Row != 4 || last.Col != 4 || last.Rows != 1 || last.Cols != 1 {
		t.Errorf("Expected 1x1 corner block at (4,4), got %s", last)
	}
}

func TestTileInvalidSize(t *testing.T) {
	for _, size := range []int{0, -3} {
		_, err := Tile(4, 4, size, DropPartial)
		if !errors.Is(err, ErrInvalidBlockSize) {
			t.Errorf("size %d: expected ErrInvalidBlockSize, got %v", size, err)
		}
	}
}

func TestTileEmpty(t *testing.T) {
	tiling, err := Tile(3, 3, 4, DropPartial)
	if err != nil {
		t.Fatalf("Tile failed: %v", err)
	}
	if tiling.Len() != 0 {
		t.Errorf("Expected no blocks, got %d", tiling.Len())
	}
}

func TestModeString(t *testing.T) {
	if DropPartial.String() != "drop-partial" || KeepPartial.String() != "keep-partial" {
		t.Error("Unexpected mode names")
	}
}
