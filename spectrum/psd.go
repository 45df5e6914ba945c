package spectrum

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Band is one subcarrier of a PSD grid. Fc is the centre frequency, Lo and Hi
// the band edges, all in Hz.
type Band struct {
	Fc float64
	Lo float64
	Hi float64
}

// Width returns the bandwidth of the band in Hz.
func (b Band) Width() float64 {
	return b.Hi - b.Lo
}

// PSD is a power spectral density: linear power values (W/Hz) over an ordered
// set of subcarrier bands. The band grid is shared between the transmitted
// and received PSD of one call; only the values differ.
type PSD struct {
	Bands  []Band
	Values []float64
}

// NewPSD allocates a zero-valued PSD over the given band grid. The bands
// slice is referenced, not copied, so a single grid can back many PSDs.
func NewPSD(bands []Band) *PSD {
	return &PSD{
		Bands:  bands,
		Values: make([]float64, len(bands)),
	}
}

// NewUniformPSD builds a PSD of n contiguous equal-width subcarriers spanning
// totalBandwidth Hz around centreFrequency Hz, with every value set to power.
func NewUniformPSD(centreFrequency, totalBandwidth float64, n int, power float64) (*PSD, error) {
	if n <= 0 {
		return nil, fmt.Errorf("subcarrier count must be positive, got %d", n)
	}
	if totalBandwidth <= 0 {
		return nil, fmt.Errorf("bandwidth must be positive, got %g", totalBandwidth)
	}
	width := totalBandwidth / float64(n)
	lo := centreFrequency - totalBandwidth/2
	bands := make([]Band, n)
	for i := range bands {
		bands[i] = Band{
			Lo: lo + float64(i)*width,
			Hi: lo + float64(i+1)*width,
			Fc: lo + (float64(i)+0.5)*width,
		}
	}
	psd := NewPSD(bands)
	for i := range psd.Values {
		psd.Values[i] = power
	}
	return psd, nil
}

// Copy returns a PSD over the same band grid with an independent value slice.
func (p *PSD) Copy() *PSD {
	out := &PSD{
		Bands:  p.Bands,
		Values: make([]float64, len(p.Values)),
	}
	copy(out.Values, p.Values)
	return out
}

// Len returns the number of subcarriers.
func (p *PSD) Len() int {
	return len(p.Bands)
}

// TotalPower integrates the PSD over all bands, returning linear watts.
func (p *PSD) TotalPower() float64 {
	total := 0.0
	for i, b := range p.Bands {
		total += p.Values[i] * b.Width()
	}
	return total
}

// PeakValue returns the largest per-subcarrier value, or 0 for an empty PSD.
func (p *PSD) PeakValue() float64 {
	if len(p.Values) == 0 {
		return 0
	}
	return floats.Max(p.Values)
}
