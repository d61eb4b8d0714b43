package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenPSG/edf"

	"entrain/internal/isc"
	"entrain/internal/services"
)

const (
	edfDigitalMin = -32768
	edfDigitalMax = 32767

	// Largest data record the EDF standard recommends. The whole result is
	// written as one record, so this bounds bands times windows.
	edfRecordBytesMax = 61440
)

// WriteEDF renders a correlation result as a plain EDF file with one
// signal per band and a single data record spanning every window.
// Missing cells are written as zero and the gap count is recorded in
// the signal's prefiltering field. interval is the spacing between
// consecutive windows in seconds.
func WriteEDF(path string, res isc.Result, interval float64) error {
	if len(res.Rows) == 0 || len(res.Bands) == 0 {
		return services.Wrap(services.ErrValidation, "export", "edf", "correlation result is empty", nil)
	}
	if interval <= 0 {
		return services.Wrap(services.ErrValidation, "export", "edf",
			fmt.Sprintf("window interval must be positive, got %g", interval), nil)
	}
	if samples := len(res.Bands) * len(res.Rows); samples*2 > edfRecordBytesMax {
		return services.Wrap(services.ErrValidation, "export", "edf",
			fmt.Sprintf("result of %d samples does not fit one EDF data record", samples), nil)
	}

	columns := make([][]float64, len(res.Bands))
	signals := make([]edf.SignalHeader, len(res.Bands))
	anyPresent := false

	for b, band := range res.Bands {
		column := make([]float64, len(res.Rows))
		gaps := 0
		low, high := math.Inf(1), math.Inf(-1)
		for i, row := range res.Rows {
			f, ok := row.Values[b].Float()
			if !ok {
				gaps++
				continue
			}
			anyPresent = true
			column[i] = f
			low = math.Min(low, f)
			high = math.Max(high, f)
		}

		// Zero stands in for gaps, so the physical range must include it.
		pmin := math.Min(0, low)
		pmax := math.Max(0, high)
		if pmin == pmax {
			pmax = pmin + 1
		}

		prefilter := ""
		if gaps > 0 {
			prefilter = fmt.Sprintf("gaps:%d zeroed", gaps)
		}

		columns[b] = column
		signals[b] = edf.SignalHeader{
			Label:             fmt.Sprintf("ISC %s", band),
			TransducerType:    "windowed pairwise correlation",
			PhysicalDimension: "r",
			PhysicalMin:       pmin,
			PhysicalMax:       pmax,
			DigitalMin:        edfDigitalMin,
			DigitalMax:        edfDigitalMax,
			Prefiltering:      prefilter,
			SamplesPerRecord:  len(res.Rows),
		}
	}

	if !anyPresent {
		return services.Wrap(services.ErrValidation, "export", "edf", "correlation result has no present samples", nil)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "edf-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	writer, err := edf.Create(tmp, edf.Header{
		Version:            edf.Version0,
		PatientID:          "group",
		RecordingID:        "intersubject correlation",
		StartTime:          time.Now().UTC(),
		DataRecordDuration: time.Duration(interval * float64(len(res.Rows)) * float64(time.Second)),
		SignalCount:        len(res.Bands),
		Signals:            signals,
	})
	if err != nil {
		cleanup()
		return fmt.Errorf("create edf writer: %w", err)
	}
	if err := writer.WriteRecord(columns); err != nil {
		cleanup()
		return fmt.Errorf("write edf record: %w", err)
	}
	if err := writer.Close(); err != nil {
		cleanup()
		return fmt.Errorf("finalize edf header: %w", err)
	}

	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod edf file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync edf file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close edf file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename edf file: %w", err)
	}
	return nil
}
