package costmap

import (
	"encoding/json"

	"github.com/deimos-rover/deimos/cellmap"
)

type serializableMap struct {
	Cells  *cellmap.Map[Layer, Value] `json:"cells"`
	Params Params                     `json:"params"`
}

// MarshalJSON implements json.Marshaler.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(serializableMap{Cells: m.cells, Params: m.params})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Map) UnmarshalJSON(data []byte) error {
	var ser serializableMap
	if err := json.Unmarshal(data, &ser); err != nil {
		return err
	}
	m.cells = ser.Cells
	m.params = ser.Params
	return nil
}
