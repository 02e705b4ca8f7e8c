package tables

import "fmt"

// Transcript is one decoded transcript location.
type Transcript struct {
	X    float64
	Y    float64
	Z    float64
	Gene string
	QV   float64
}

// TranscriptTable holds one row per detected transcript.
type TranscriptTable struct {
	Frame       *Frame
	Transcripts []Transcript
}

// ReadTranscripts reads a transcript table. x_location, y_location and
// feature_name are required; z_location and qv default to 0.
func ReadTranscripts(path string) (*TranscriptTable, error) {
	frame, err := ReadFrame(path)
	if err != nil {
		return nil, err
	}
	if err := frame.require("x_location", "y_location", "feature_name"); err != nil {
		return nil, err
	}

	t := &TranscriptTable{Frame: frame, Transcripts: make([]Transcript, 0, frame.Len())}
	for i, row := range frame.Rows {
		x, okX := Float(row["x_location"])
		y, okY := Float(row["y_location"])
		if !okX || !okY {
			return nil, fmt.Errorf("row %d: non-numeric location", i)
		}
		z, _ := Float(row["z_location"])
		qv, _ := Float(row["qv"])
		t.Transcripts = append(t.Transcripts, Transcript{
			X: x, Y: y, Z: z,
			Gene: String(row["feature_name"]),
			QV:   qv,
		})
	}
	return t, nil
}

// Len returns the number of transcripts.
func (t *TranscriptTable) Len() int {
	return len(t.Transcripts)
}

// GeneCounts returns the number of transcripts per gene.
func (t *TranscriptTable) GeneCounts() map[string]int {
	counts := make(map[string]int)
	for _, tr := range t.Transcripts {
		counts[tr.Gene]++
	}
	return counts
}
