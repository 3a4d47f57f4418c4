package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/textpipe/binding"
	"github.com/gomlx/textpipe/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

func newBatchesCmd() *cobra.Command {
	var maxBatches int
	var showTensors bool
	cmd := &cobra.Command{
		Use:   "batches [input-file]",
		Short: "Run the full pipeline (load, tokenize, batch) and report statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Input.Path = args[0]
			}
			if cfg.Input.Path == "" {
				return errors.New("no input file: pass it as argument or set input.path")
			}
			handle, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			report, err := runBatches(handle, maxBatches)
			if err != nil {
				return err
			}
			report.Print(cmd.OutOrStdout())
			if showTensors {
				report.PrintTensors(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxBatches, "max-batches", 0, "Stop after this many batches (0 for all)")
	cmd.Flags().BoolVar(&showTensors, "tensors", false, "Also print the tensor shapes of the first batch")
	return cmd
}

// buildPipeline creates loader, tokenizer and batcher stages for the configured input and tokenizer.
func buildPipeline(cfg config.Config) (*binding.Handle, error) {
	var loader *binding.Handle
	var err error
	switch cfg.Input.Format {
	case config.FormatSQuAD:
		loader, err = binding.NewSQuADLoader(cfg.Input.Path)
	default:
		loader, err = binding.NewLineLoader(cfg.Input.Path)
	}
	if err != nil {
		return nil, err
	}
	tokenized, err := binding.NewTokenizer(loader, cfg.Tokenizer.Name, tokenizerOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	return binding.NewStaticBatcher(tokenized, cfg.Batch.Size, cfg.Batch.SeqLength)
}

// batchReport summarizes a pipeline run.
type batchReport struct {
	Batches, Samples    int
	TruncatedRows       int
	PadCells, Cells     int
	AlignedSpans, Spans int
	LengthMean          float64
	LengthStdDev        float64

	// TensorShapes of the inputs and labels of the first batch.
	TensorShapes []string
}

// runBatches pulls up to maxBatches batches (all if maxBatches <= 0) from handle.
func runBatches(handle *binding.Handle, maxBatches int) (*batchReport, error) {
	report := &batchReport{}
	var lengths []float64
	for maxBatches <= 0 || report.Batches < maxBatches {
		item, ok, err := handle.Next()
		if err != nil {
			return nil, errors.WithMessagef(err, "batch #%d", report.Batches)
		}
		if !ok {
			break
		}
		if report.Batches == 0 {
			inputs, labels := item.Tensors()
			for _, t := range append(inputs, labels...) {
				report.TensorShapes = append(report.TensorShapes, t.Shape().String())
				t.FinalizeAll()
			}
		}
		report.Batches++
		ids := item.Matrix
		report.Samples += item.Stats.Rows
		report.Cells += ids.Rows * ids.Cols
		report.TruncatedRows += item.Stats.TruncatedRows
		report.PadCells += item.Stats.PadCells
		for _, length := range item.Lengths {
			lengths = append(lengths, float64(length))
		}
		for ii := range item.SpanStart {
			report.Spans++
			if item.SpanStart[ii] != 0 || item.SpanEnd[ii] != 0 {
				report.AlignedSpans++
			}
		}
		log.Debug().Int("batch", report.Batches).Int("rows", ids.Rows).Msg("batch ready")
	}
	if len(lengths) > 0 {
		report.LengthMean, report.LengthStdDev = stat.MeanStdDev(lengths, nil)
	}
	return report, nil
}

// PrintTensors writes the tensor shapes of the first batch.
func (r *batchReport) PrintTensors(w io.Writer) {
	for ii, shape := range r.TensorShapes {
		_, _ = fmt.Fprintf(w, "tensor #%d:      %s\n", ii, shape)
	}
}

// Print writes the report in human-readable form.
func (r *batchReport) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "batches:        %s\n", humanize.Comma(int64(r.Batches)))
	_, _ = fmt.Fprintf(w, "samples:        %s\n", humanize.Comma(int64(r.Samples)))
	_, _ = fmt.Fprintf(w, "tokens/sample:  %.1f ± %.1f\n", r.LengthMean, r.LengthStdDev)
	_, _ = fmt.Fprintf(w, "truncated rows: %s\n", humanize.Comma(int64(r.TruncatedRows)))
	padding := 0.0
	if r.Cells > 0 {
		padding = 100 * float64(r.PadCells) / float64(r.Cells)
	}
	_, _ = fmt.Fprintf(w, "padding:        %.1f%%\n", padding)
	if r.Spans > 0 {
		_, _ = fmt.Fprintf(w, "aligned spans:  %s of %s\n", humanize.Comma(int64(r.AlignedSpans)), humanize.Comma(int64(r.Spans)))
	}
}
