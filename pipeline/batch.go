package pipeline

// Matrix is a dense row-major matrix of token ids.
type Matrix struct {
	Rows, Cols int
	Data       []uint32
}

// NewMatrix returns a rows x cols Matrix with every cell set to fill.
func NewMatrix(rows, cols int, fill uint32) Matrix {
	data := make([]uint32, rows*cols)
	for ii := range data {
		data[ii] = fill
	}
	return Matrix{Rows: rows, Cols: cols, Data: data}
}

// At returns the value at row, col.
func (m Matrix) At(row, col int) uint32 {
	return m.Data[row*m.Cols+col]
}

// Row returns a view (not a copy) of the given row.
func (m Matrix) Row(row int) []uint32 {
	return m.Data[row*m.Cols : (row+1)*m.Cols]
}

// BatchEncoding holds the padded token ids of a batch.
type BatchEncoding struct {
	// IDs has one row per sample, each with exactly the batch sequence length.
	IDs      Matrix
	PadToken uint32

	// Lengths holds the number of tokens of each sample before truncation.
	Lengths []int
}

// Batch is a dense, fixed-shape group of tokenized samples and their labels.
type Batch struct {
	Encoding BatchEncoding
	Labels   BatchLabel
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int {
	return b.Encoding.IDs.Rows
}

// BatchStats summarizes the padding and truncation of a Batch.
type BatchStats struct {
	Rows          int
	TruncatedRows int
	PadCells      int
}

// Stats returns padding and truncation counts for the batch.
func (b *Batch) Stats() BatchStats {
	ids := b.Encoding.IDs
	stats := BatchStats{Rows: ids.Rows}
	for _, length := range b.Encoding.Lengths {
		if length > ids.Cols {
			stats.TruncatedRows++
			continue
		}
		stats.PadCells += ids.Cols - length
	}
	return stats
}
