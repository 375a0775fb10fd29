package partition

import "encoding/json"

// document is the top-level shape of one partition file.
type document struct {
	Data json.RawMessage `json:"data"`
}
