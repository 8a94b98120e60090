package cellmap

import (
	"encoding/json"

	"github.com/golang/geo/r2"
)

// serializableMap is the on-disk form of a Map, kept minimal so session dumps
// stay readable.
type serializableMap[L comparable, V any] struct {
	CellSizeM  r2.Point `json:"cell_size_m"`
	CellBounds Bounds   `json:"cell_bounds"`
	PositionM  r2.Point `json:"position_m"`
	HeadingRad float64  `json:"heading_rad"`
	Layers     []L      `json:"layers"`
	Data       []V      `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (m *Map[L, V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(serializableMap[L, V]{
		CellSizeM:  m.cellSizeM,
		CellBounds: m.bounds,
		PositionM:  m.positionM,
		HeadingRad: m.headingRad,
		Layers:     m.layers,
		Data:       m.data,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Map[L, V]) UnmarshalJSON(data []byte) error {
	var ser serializableMap[L, V]
	if err := json.Unmarshal(data, &ser); err != nil {
		return err
	}

	loaded, err := New[L, V](Params{
		CellSizeM:  ser.CellSizeM,
		CellBounds: ser.CellBounds,
		PositionM:  ser.PositionM,
		HeadingRad: ser.HeadingRad,
	}, ser.Layers)
	if err != nil {
		return err
	}
	if len(ser.Data) == len(loaded.data) {
		loaded.data = ser.Data
	}
	*m = *loaded
	return nil
}
