package spectrum

import (
	"fmt"
	"math/cmplx"

	"github.com/signalsfoundry/mmwave-channel-sim/antenna"
)

// CalcLongTerm reduces each cluster's rxElements x txElements coefficient
// matrix to a single complex gain by applying the receive weights uW and the
// transmit weights sW: sum over (i, j) of conj(uW[i]) * H_c[i][j] * sW[j].
// The result has one entry per cluster and is fully determined by its inputs.
func CalcLongTerm(matrix *ChannelMatrix, sW, uW antenna.BeamformingVector) ([]complex128, error) {
	longTerm := make([]complex128, matrix.NumClusters())
	for c, h := range matrix.Clusters {
		rows, cols := h.Dims()
		if rows != len(uW) {
			return nil, fmt.Errorf("cluster %d has %d rx elements, u beamforming vector has %d weights", c, rows, len(uW))
		}
		if cols != len(sW) {
			return nil, fmt.Errorf("cluster %d has %d tx elements, s beamforming vector has %d weights", c, cols, len(sW))
		}
		var acc complex128
		for i := 0; i < rows; i++ {
			uConj := cmplx.Conj(uW[i])
			for j := 0; j < cols; j++ {
				acc += uConj * h.At(i, j) * sW[j]
			}
		}
		longTerm[c] = acc
	}
	return longTerm, nil
}

// longTermEntry is one published cache record. Entries are immutable once
// stored; invalidation replaces the whole entry.
type longTermEntry struct {
	longTerm   []complex128
	generation uint64
	sW         antenna.BeamformingVector
	uW         antenna.BeamformingVector
}

func (e *longTermEntry) valid(matrix *ChannelMatrix, sW, uW antenna.BeamformingVector) bool {
	return e.generation == matrix.Generation && e.sW.Equal(sW) && e.uW.Equal(uW)
}

// LongTermCache stores, per link, the most recent long-term component
// together with the channel generation and beamforming vectors that produced
// it. The simulation is single-threaded by construction, so the cache takes
// no locks; concurrent model instances must each own their own cache.
type LongTermCache struct {
	entries map[uint64]*longTermEntry
}

// NewLongTermCache returns an empty cache.
func NewLongTermCache() *LongTermCache {
	return &LongTermCache{entries: make(map[uint64]*longTermEntry)}
}

// Get returns the long-term component for the link, recomputing it through
// CalcLongTerm when no entry exists, the channel generation moved on, or
// either beamforming vector changed. The second return value reports whether
// the cached entry was reused.
func (c *LongTermCache) Get(key uint64, matrix *ChannelMatrix, sW, uW antenna.BeamformingVector) ([]complex128, bool, error) {
	if entry, ok := c.entries[key]; ok && entry.valid(matrix, sW, uW) {
		return entry.longTerm, true, nil
	}

	longTerm, err := CalcLongTerm(matrix, sW, uW)
	if err != nil {
		return nil, false, err
	}

	// Publish a fresh entry with cloned beams: the caller's vectors live in
	// the antenna object and may be rewritten on the next beam selection.
	c.entries[key] = &longTermEntry{
		longTerm:   longTerm,
		generation: matrix.Generation,
		sW:         sW.Clone(),
		uW:         uW.Clone(),
	}
	return longTerm, false, nil
}

// Remove drops the entry for a link that is no longer active.
func (c *LongTermCache) Remove(key uint64) {
	delete(c.entries, key)
}

// Len returns the number of cached links.
func (c *LongTermCache) Len() int {
	return len(c.entries)
}

// Reset drops all entries.
func (c *LongTermCache) Reset() {
	c.entries = make(map[uint64]*longTermEntry)
}
