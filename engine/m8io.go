package engine

import (
	"os"

	"go.uber.org/zap"

	"github.com/8b-is/mem8/errs"
	"github.com/8b-is/mem8/grid"
	"github.com/8b-is/mem8/m8"
	"github.com/8b-is/mem8/wavecodec"
)

// ExportM8 serializes every stored (coordinate, wave) pair in the
// Engine's Grid into a single SectionWaveMemoryBlob and returns a
// complete .m8 file (spec.md §6 export_m8). timestampUnix is the
// Unix-seconds value stamped into the file header.
func (e *Engine) ExportM8(timestampUnix uint64) ([]byte, error) {
	samples := e.grid.All()

	payload := make([]byte, 0, len(samples)*wavecodec.Size)
	for _, s := range samples {
		cw := wavecodec.Encode(grid.EncodeCoordID(s.Coord), s.Wave, 0)
		payload = append(payload, cw.Bytes()...)
	}

	var wopts []m8.WriterOption
	if e.cfg.CompressionAlgo != 0 {
		wopts = append(wopts, m8.WithCompression(e.cfg.CompressionAlgo))
	}

	w := m8.NewWriter(wopts...)
	w.AddSection(m8.SectionWaveMemoryBlob, payload)

	out, err := w.Finish(timestampUnix)
	if err != nil {
		e.logger.Error(".m8 export failed", zap.Error(err))
		return nil, err
	}

	return out, nil
}

// ExportM8ToFile writes ExportM8's output to path.
func (e *Engine) ExportM8ToFile(path string, timestampUnix uint64) error {
	data, err := e.ExportM8(timestampUnix)
	if err != nil {
		return err
	}

	return errs.WrapIO("m8 export write", os.WriteFile(path, data, 0o644))
}

// ImportM8 parses data as a .m8 file and restores every wave-memory
// record it contains into the Engine's Grid, returning the number of
// records restored (spec.md §6 import_m8). Sections other than
// SectionWaveMemoryBlob are ignored; a file with no such section
// restores zero records without error.
func (e *Engine) ImportM8(data []byte) (int, error) {
	r, err := m8.Open(data)
	if err != nil {
		e.logger.Error(".m8 import failed", zap.Error(err))
		return 0, err
	}

	section, ok := r.Section(m8.SectionWaveMemoryBlob)
	if !ok {
		return 0, nil
	}

	count := 0
	for off := 0; off+wavecodec.Size <= len(section.Payload); off += wavecodec.Size {
		cw, ok := wavecodec.Parse(section.Payload[off : off+wavecodec.Size])
		if !ok {
			continue
		}

		coord := grid.DecodeCoordID(cw.ID)
		if err := e.grid.Store(coord, cw.ToWave()); err != nil {
			return count, err
		}

		count++
	}

	e.logger.Debug(".m8 import", zap.Int("records_restored", count))

	return count, nil
}

// ImportM8FromFile reads path and imports it via ImportM8.
func (e *Engine) ImportM8FromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errs.WrapIO("m8 import read", err)
	}

	return e.ImportM8(data)
}
