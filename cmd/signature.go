package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/cwbudde/blocksim/internal/imageio"
	"github.com/cwbudde/blocksim/internal/signature"
	"github.com/cwbudde/blocksim/internal/tile"
	"github.com/spf13/cobra"
)

var (
	sigRow     int
	sigCol     int
	sigSize    int
	sigPlot    string
	sigNonZero bool
)

var signatureCmd = &cobra.Command{
	Use:   "signature <image>",
	Short: "Print the neighborhood signature of an image or one block",
	Long: `Quantizes the image and prints the 55-slot neighborhood histogram, either
for the whole image or for the block at --row/--col when --size is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runSignature,
}

func init() {
	signatureCmd.Flags().IntVar(&sigRow, "row", 0, "Top row of the block")
	signatureCmd.Flags().IntVar(&sigCol, "col", 0, "Left column of the block")
	signatureCmd.Flags().IntVar(&sigSize, "size", 0, "Block edge length (0 = whole image)")
	signatureCmd.Flags().StringVar(&sigPlot, "plot", "", "Write a bar chart of the histogram (png, svg, pdf)")
	signatureCmd.Flags().BoolVar(&sigNonZero, "non-zero", false, "Only print slots with a non-zero count")
	signatureCmd.Flags().BoolVar(&strictPalette, "strict-palette", false, "Fail on pixel values outside the palette")
	rootCmd.AddCommand(signatureCmd)
}

func runSignature(cmd *cobra.Command, args []string) error {
	eff, err := resolve(cmd)
	if err != nil {
		return err
	}

	img, err := imageio.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	q, err := eff.Quantizer()
	if err != nil {
		return err
	}
	rg, err := q.Quantize(img)
	if err != nil {
		return fmt.Errorf("failed to quantize image: %w", err)
	}

	var sig signature.Signature
	title := filepath.Base(args[0])
	if sigSize > 0 {
		b := tile.Block{Row: sigRow, Col: sigCol, Rows: sigSize, Cols: sigSize}
		if b.Row < 0 || b.Col < 0 || b.Row+b.Rows > rg.Rows() || b.Col+b.Cols > rg.Cols() {
			return fmt.Errorf("block %s does not fit the %dx%d image", b, rg.Rows(), rg.Cols())
		}
		sig = signature.Compute(rg, b)
		title = fmt.Sprintf("%s %s", title, b)
	} else {
		sig = signature.Whole(rg)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tPAIR VALUE\tCOUNT")
	fmt.Fprintln(w, "----\t----------\t-----")
	for i, k := range signature.Keys() {
		if sigNonZero && sig[i] == 0 {
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%d\n", i, k, sig[i])
	}
	w.Flush()
	fmt.Printf("\nTotal pairs: %d, unmapped cells: %d\n", sig.Total(), rg.Unmapped())

	if sigPlot != "" {
		if err := signature.Plot(sig, title, sigPlot); err != nil {
			return fmt.Errorf("failed to plot signature: %w", err)
		}
		fmt.Printf("Wrote %s\n", sigPlot)
	}
	return nil
}
